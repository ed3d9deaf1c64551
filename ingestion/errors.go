package ingestion

import "errors"

var (
	// ErrFeedRequired is returned when a catalog feed is not provided.
	ErrFeedRequired = errors.New("catalog feed required")

	// ErrConnectorRequired is returned when a repository connector is not provided.
	ErrConnectorRequired = errors.New("repository connector required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRunnerRequired is returned when a scheduler has no cycle runner.
	ErrRunnerRequired = errors.New("cycle runner required")

	// ErrInvalidMaxAttempts is returned when retry attempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrDimensionMismatch is returned when a vector does not have the configured length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
