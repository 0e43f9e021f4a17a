// Package chunking splits fact-check claims into retrievable chunks.
//
// Each claim yields one overview chunk summarising the claim and its verdict,
// followed by one fact_detail chunk per publishable fact. Facts longer than
// the configured character budget are split at sentence boundaries, and every
// follow-up chunk is seeded with the tail of the previous one so that context
// carries across the cut.
package chunking
