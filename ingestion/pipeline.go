package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

const (
	// DefaultBatchSize is the number of products between intermediate commits.
	DefaultBatchSize = 20

	defaultConnectAttempts  = 3
	defaultConnectBaseDelay = 2 * time.Second
)

// CatalogFeed lists stores and their products.
type CatalogFeed interface {
	FetchStores(ctx context.Context) ([]core.Store, error)
	FetchProducts(ctx context.Context, store *core.Store) ([]core.Product, error)
}

// Pipeline runs sync cycles: every store, every product, compose, embed and
// upsert, with store-scoped commit boundaries.
// A Pipeline runs one cycle at a time and is not safe for concurrent use.
type Pipeline struct {
	feed             CatalogFeed
	connector        storage.Connector
	provider         *EmbeddingProvider
	checkpoints      storage.CheckpointRepository
	batchSize        int
	connectAttempts  int
	connectBaseDelay time.Duration
	assistantID      int64
	accountID        int64
	state            State
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets how many products are processed between commits.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithConnectRetry sets how opening the repository is retried.
// Default is 3 attempts starting at 2s.
func WithConnectRetry(attempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.connectAttempts = attempts
		p.connectBaseDelay = baseDelay
		return nil
	}
}

// WithOwner sets the assistant and account ids stamped on inserted records.
// Default is 1 for both.
func WithOwner(assistantID, accountID int64) Option {
	return func(p *Pipeline) error {
		p.assistantID = assistantID
		p.accountID = accountID
		return nil
	}
}

// WithCheckpoints persists a summary of every cycle.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		p.checkpoints = repo
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a sync pipeline.
func NewPipeline(feed CatalogFeed, connector storage.Connector, provider *EmbeddingProvider, opts ...Option) (*Pipeline, error) {
	if feed == nil {
		return nil, ErrFeedRequired
	}
	if connector == nil {
		return nil, ErrConnectorRequired
	}
	if provider == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		feed:             feed,
		connector:        connector,
		provider:         provider,
		batchSize:        DefaultBatchSize,
		connectAttempts:  defaultConnectAttempts,
		connectBaseDelay: defaultConnectBaseDelay,
		assistantID:      1,
		accountID:        1,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// State returns the phase the pipeline is in.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) setState(s State) {
	if p.state == s {
		return
	}
	p.logger.Debug("state transition", "from", p.state, "to", s)
	p.state = s
}

// RunCycle performs one full pass over every store.
//
// Product and store failures are recorded in the report and do not fail the
// cycle. The returned error is a *core.Failure of kind core.KindCycle when
// the store directory or the repository is unavailable, or ctx.Err() when
// the cycle was interrupted.
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run", report.RunID)

	err := p.runCycle(ctx, report, logger)
	report.Duration = time.Since(report.StartedAt)

	if err != nil && ctx.Err() == nil {
		err = core.NewFailure(core.KindCycle, report.RunID, err)
		logger.Error("cycle failed", "err", err, "duration", report.Duration)
	}
	if ctx.Err() != nil {
		p.setState(StateIdle)
		return report, ctx.Err()
	}

	if err == nil {
		p.setState(StateCycleComplete)
		logger.Info("cycle complete",
			"duration", report.Duration.Round(time.Second),
			"processed", report.Processed,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
			"success_rate", fmt.Sprintf("%.1f%%", report.SuccessRate()),
			"stores", len(report.Stores),
			"stores_failed", report.StoresFailed)
	}

	p.saveCheckpoint(ctx, report, err, logger)
	return report, err
}

func (p *Pipeline) runCycle(ctx context.Context, report *CycleReport, logger *slog.Logger) error {
	p.setState(StateFetchingStores)
	stores, err := p.feed.FetchStores(ctx)
	if err != nil {
		return err
	}
	logger.Info("stores found", "count", len(stores))

	repo, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(ctx); err != nil {
			logger.Warn("error closing repository", "err", err)
		}
	}()

	for i := range stores {
		if err := ctx.Err(); err != nil {
			return err
		}
		storeLogger := logger.With("store", stores[i].ID.String(), "name", stores[i].Name)
		storeLogger.Info("syncing store", "index", i+1, "of", len(stores))

		result := p.syncStore(ctx, repo, &stores[i], storeLogger)
		report.add(result)

		if result.Err != nil {
			storeLogger.Error("store failed", "err", result.Err,
				"succeeded", result.Succeeded, "failed", result.Failed)
		} else {
			storeLogger.Info("store complete",
				"succeeded", result.Succeeded, "failed", result.Failed, "commits", result.Commits)
		}
	}

	return ctx.Err()
}

// open acquires the cycle's repository session with retry.
func (p *Pipeline) open(ctx context.Context) (storage.CatalogRepository, error) {
	var repo storage.CatalogRepository
	err := RetryWithBackoff(ctx, func() error {
		var err error
		repo, err = p.connector.Open(ctx)
		return err
	}, p.connectAttempts, p.connectBaseDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewFailure(core.KindPersistence, "connect", err)
	}
	return repo, nil
}

// syncStore processes every product of one store.
// Writes are committed every batchSize products and once at the end. A failed
// commit or a panic discards the uncommitted tail and ends the store.
func (p *Pipeline) syncStore(ctx context.Context, repo storage.CatalogRepository, store *core.Store, logger *slog.Logger) (result StoreResult) {
	result = StoreResult{
		StoreID: store.ID.String(),
		Name:    store.Name,
	}
	scope := "store " + result.StoreID

	p.setState(StateFetchingProducts)
	products, err := p.feed.FetchProducts(ctx, store)
	if err != nil {
		result.Err = err
		return result
	}
	result.Products = len(products)
	logger.Info("products found", "count", len(products))

	// succeeded products whose writes are not yet committed
	uncommitted := 0
	progress := newProgressTracker(logger, len(products), p.batchSize)

	defer func() {
		if r := recover(); r != nil {
			// The product in flight counts as processed and failed.
			result.Processed++
			result.Failed++
			p.discard(ctx, repo, &result, uncommitted, logger)
			result.Err = core.NewFailure(core.KindPersistence, scope, fmt.Errorf("panic: %v", r))
		}
	}()

	for i := range products {
		if ctx.Err() != nil {
			p.discard(ctx, repo, &result, uncommitted, logger)
			result.Err = ctx.Err()
			return result
		}

		pr := p.processProduct(ctx, repo, store, &products[i])
		result.Processed++
		if pr.OK() {
			result.Succeeded++
			uncommitted++
			logger.Debug("product synced", "product", pr.ProductID, "name", pr.Name, "action", pr.Action, "cached", pr.Cached)
		} else {
			result.Failed++
			logger.Warn("product failed", "product", pr.ProductID, "name", pr.Name, "err", pr.Err)
		}
		progress.Increment()

		if (i+1)%p.batchSize == 0 {
			if err := p.commit(ctx, repo, &result); err != nil {
				p.discard(ctx, repo, &result, uncommitted, logger)
				result.Err = core.NewFailure(core.KindPersistence, scope, err)
				return result
			}
			uncommitted = 0
		}
	}

	if err := p.commit(ctx, repo, &result); err != nil {
		p.discard(ctx, repo, &result, uncommitted, logger)
		result.Err = core.NewFailure(core.KindPersistence, scope, err)
		return result
	}

	return result
}

func (p *Pipeline) commit(ctx context.Context, repo storage.CatalogRepository, result *StoreResult) error {
	result.Commits++
	return repo.Commit(ctx)
}

// discard rolls back the uncommitted tail and moves it from succeeded to failed.
func (p *Pipeline) discard(ctx context.Context, repo storage.CatalogRepository, result *StoreResult, uncommitted int, logger *slog.Logger) {
	if err := repo.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error("rollback failed", "err", err)
	}
	result.Succeeded -= uncommitted
	result.Failed += uncommitted
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, report *CycleReport, cycleErr error, logger *slog.Logger) {
	if p.checkpoints == nil {
		return
	}
	if err := p.checkpoints.SaveCheckpoint(ctx, report.Checkpoint(cycleErr)); err != nil {
		logger.Warn("error saving checkpoint", "err", err)
	}
}
