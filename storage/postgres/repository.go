package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// session is the part of *pgx.Conn the repository needs.
type session interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Repository implements storage.CatalogRepository over a single connection.
//
// The lookup-then-write upsert done by callers is not atomic across
// sessions: two writers racing on a new product id can both miss the lookup,
// and the second insert then fails on the unique product_id index with
// storage.ErrDuplicateKey.
type Repository struct {
	conn    session
	tx      pgx.Tx
	q       queries
	logger  *slog.Logger
	pending int
	closed  bool
}

var _ storage.CatalogRepository = (*Repository)(nil)

func newRepository(conn session, table string, logger *slog.Logger) *Repository {
	return &Repository{
		conn:   conn,
		q:      newQueries(table),
		logger: logger,
	}
}

// begin returns the open transaction, starting one if needed.
func (r *Repository) begin(ctx context.Context) (pgx.Tx, error) {
	if r.closed {
		return nil, storage.ErrStorageClosed
	}
	if r.tx != nil {
		return r.tx, nil
	}
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", storage.ErrTransactionFailed, err)
	}
	r.tx = tx
	return tx, nil
}

// statement runs fn inside a savepoint of the open transaction.
// On error the savepoint is rolled back and the transaction stays usable.
func (r *Repository) statement(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: savepoint: %w", storage.ErrTransactionFailed, err)
	}

	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return sp.Commit(ctx)
}

// FindByProductID returns the record id for productID.
func (r *Repository) FindByProductID(ctx context.Context, productID string) (int64, error) {
	var id int64
	err := r.statement(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, r.q.findByProductID, productID).Scan(&id)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Insert creates a record and sets its ID.
func (r *Repository) Insert(ctx context.Context, record *core.CatalogRecord) error {
	err := r.statement(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, r.q.insert,
			record.Content,
			record.AssistantID,
			record.AccountID,
			pgvector.NewVector(record.ContentVector),
			record.ProductID,
			record.StoreID,
		).Scan(&record.ID)
	})
	if err != nil {
		return translate(err)
	}
	r.pending++
	return nil
}

// Update overwrites content, vector and store of the record keyed by ProductID.
func (r *Repository) Update(ctx context.Context, record *core.CatalogRecord) error {
	err := r.statement(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, r.q.update,
			record.Content,
			pgvector.NewVector(record.ContentVector),
			record.StoreID,
			record.ProductID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}
	r.pending++
	return nil
}

// Commit makes pending writes durable. Without an open transaction it is a no-op.
func (r *Repository) Commit(ctx context.Context) error {
	if r.tx == nil {
		return nil
	}
	tx := r.tx
	r.tx = nil
	pending := r.pending
	r.pending = 0

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", storage.ErrTransactionFailed, err)
	}
	r.logger.Debug("committed", "writes", pending)
	return nil
}

// Rollback discards pending writes. Without an open transaction it is a no-op.
func (r *Repository) Rollback(ctx context.Context) error {
	if r.tx == nil {
		return nil
	}
	tx := r.tx
	r.tx = nil
	discarded := r.pending
	r.pending = 0

	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("%w: rollback: %w", storage.ErrTransactionFailed, err)
	}
	if discarded > 0 {
		r.logger.Warn("rolled back uncommitted writes", "writes", discarded)
	}
	return nil
}

// FindSimilar returns records by cosine similarity to vector.
func (r *Repository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if limit < 1 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult
	err := r.statement(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, r.q.findSimilar, pgvector.NewVector(vector), float64(minSimilarity), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				record core.CatalogRecord
				vec    pgvector.Vector
				score  float64
			)
			if err := rows.Scan(
				&record.ID,
				&record.ProductID,
				&record.StoreID,
				&record.Content,
				&vec,
				&record.AssistantID,
				&record.AccountID,
				&record.CreatedAt,
				&record.UpdatedAt,
				&score,
			); err != nil {
				return err
			}
			record.ContentVector = vec.Slice()
			results = append(results, &core.SearchResult{Record: &record, Score: float32(score)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close rolls back anything uncommitted and releases the connection.
// Calling Close more than once is safe.
func (r *Repository) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	// Release even when the caller's context is already cancelled.
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	rbErr := r.Rollback(closeCtx)
	r.closed = true
	return errors.Join(rbErr, r.conn.Close(closeCtx))
}

// translate maps driver errors onto storage sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}
