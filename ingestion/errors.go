package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrSplitterRequired is returned when a splitter is not provided.
	ErrSplitterRequired = errors.New("splitter required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidPayload is returned when an import is submitted without a claim list.
	ErrInvalidPayload = errors.New("import payload must be a list of claims")

	// ErrJobNotDeletable is returned when deleting a job that has not reached a terminal state.
	ErrJobNotDeletable = errors.New("job is not in a terminal state")

	// ErrStaleThreshold is returned when a recovery threshold would treat
	// jobs with a live heartbeat as abandoned.
	ErrStaleThreshold = errors.New("stale threshold too short")

	// ErrEmbeddingCountMismatch is returned when the embedder returns a different
	// number of vectors than chunks were submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match chunk count")
)
