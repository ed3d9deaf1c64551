package storage

import (
	"context"
	"time"

	"github.com/poiesic/catalogsync/core"
)

// CatalogRepository is the knowledge-base table, one record per product.
//
// Writes are not visible to other sessions until Commit. A transaction is
// opened lazily by the first statement after a boundary; implementations
// never commit on their own. A failed statement fails only itself and leaves
// the open transaction usable.
//
// Implementations are used from a single goroutine and need not be thread-safe.
type CatalogRepository interface {
	// FindByProductID returns the record id for productID.
	// Returns ErrNotFound if no record exists.
	FindByProductID(ctx context.Context, productID string) (int64, error)

	// Insert creates a record. CreatedAt and UpdatedAt are set to the
	// database's current time.
	Insert(ctx context.Context, record *core.CatalogRecord) error

	// Update overwrites content, vector and store of the record keyed by
	// record.ProductID and refreshes UpdatedAt.
	// Returns ErrNotFound if no record exists.
	Update(ctx context.Context, record *core.CatalogRecord) error

	// Commit makes every write since the last boundary durable.
	// Committing with nothing pending is a no-op.
	Commit(ctx context.Context) error

	// Rollback discards every write since the last boundary.
	Rollback(ctx context.Context) error

	// FindSimilar finds records similar to the given vector.
	// Returns records with similarity >= minSimilarity, up to limit results,
	// ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// Close rolls back anything uncommitted and releases the connection.
	Close(ctx context.Context) error
}

// Connector opens a CatalogRepository session.
// Each call acquires its own connection; the caller must Close it.
type Connector interface {
	Open(ctx context.Context) (CatalogRepository, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (CatalogRepository, error)

// Open calls f(ctx).
func (f ConnectorFunc) Open(ctx context.Context) (CatalogRepository, error) {
	return f(ctx)
}

// EmbeddingCache stores vectors by document fingerprint.
type EmbeddingCache interface {
	// GetVector returns the cached vector for fp.
	// Returns ErrNotFound on a miss.
	GetVector(ctx context.Context, fp core.Fingerprint) ([]float32, error)

	// PutVector caches vector under fp for ttl. A zero ttl never expires.
	PutVector(ctx context.Context, fp core.Fingerprint, vector []float32, ttl time.Duration) error
}

// CheckpointRepository persists cycle summaries.
type CheckpointRepository interface {
	// SaveCheckpoint persists checkpoint as the latest cycle summary.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the latest cycle summary.
	// Returns nil, nil if no cycle has completed yet.
	LoadCheckpoint(ctx context.Context) (*core.Checkpoint, error)
}
