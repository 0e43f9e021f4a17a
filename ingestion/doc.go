// Package ingestion runs import jobs that bring fact-check claims into the store.
//
// An Importer accepts a batch of claims, records a job in the pending state
// and returns its id at once. The job then runs on a worker pool and walks the
// claims in order:
//   - claims that are internal, not checked or published, or without a
//     synopsis are skipped
//   - claims whose content fingerprint matches the stored one are skipped
//   - every other claim is split into chunks, embedded as one batch and
//     upserted together with its chunks in a single store transaction
//
// A failure on one claim is counted and the job moves on; only the first error
// message is kept. Progress is persisted every ten claims. Cancellation is
// cooperative and takes effect at the next claim boundary, so a claim that is
// already being written always completes.
//
// The store is the source of truth for job state. The importer keeps live
// snapshots of the jobs it runs so that status polls see progress between
// persisted checkpoints.
package ingestion
