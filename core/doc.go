// Package core defines the domain model shared by every checkbot-rag package:
// claims in their import format, stored claim records, chunks, import jobs
// and the search result types. It also holds the domain rules that do not
// depend on storage, such as import eligibility, content fingerprints and the
// mapping from language codes to text-search configurations.
package core
