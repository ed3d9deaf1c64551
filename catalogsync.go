// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/ai/openai"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/feed"
	"github.com/poiesic/catalogsync/ingestion"
	"github.com/poiesic/catalogsync/search"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/storage/badger"
	"github.com/poiesic/catalogsync/storage/postgres"
)

// Service wires the feed client, embedding provider, knowledge-base
// connector and local state into a sync pipeline.
type Service struct {
	cfg       *config.Config
	feed      *feed.Client
	embedder  ai.Embedder
	provider  *ingestion.EmbeddingProvider
	connector storage.Connector
	state     *badger.Stores
	pipeline  *ingestion.Pipeline
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	embedder  ai.Embedder
	connector storage.Connector
	logger    *slog.Logger
	noState   bool
}

// WithEmbedder replaces the OpenAI-compatible embedder.
func WithEmbedder(embedder ai.Embedder) ServiceOption {
	return func(o *serviceOptions) {
		o.embedder = embedder
	}
}

// WithConnector replaces the PostgreSQL connector.
func WithConnector(connector storage.Connector) ServiceOption {
	return func(o *serviceOptions) {
		o.connector = connector
	}
}

// WithoutLocalState leaves STATE_DIR closed. Commands that never run a cycle
// use it so they do not contend for the directory lock with a running service.
func WithoutLocalState() ServiceOption {
	return func(o *serviceOptions) {
		o.noState = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService validates cfg and builds every component. Nothing touches the
// network or the database until a cycle runs.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, core.NewFailure(core.KindConfiguration, "", config.ErrConfigRequired)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	client, err := feed.NewClient(cfg.Feed.StoresURL,
		feed.WithTimeout(cfg.Feed.Timeout),
		feed.WithLogger(logger))
	if err != nil {
		return nil, core.NewFailure(core.KindConfiguration, "feed", err)
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(cfg.AI)
		if err != nil {
			return nil, core.NewFailure(core.KindConfiguration, "embedder", err)
		}
	}

	connector := options.connector
	if connector == nil {
		connector, err = postgres.NewConnector(cfg.Database.ConnString(),
			postgres.WithTable(cfg.Knowledge.Table),
			postgres.WithLogger(logger))
		if err != nil {
			return nil, core.NewFailure(core.KindConfiguration, "database", err)
		}
	}

	var state *badger.Stores
	if cfg.StateDir != "" && !options.noState {
		state, err = openState(cfg.StateDir)
		if err != nil {
			return nil, core.NewFailure(core.KindConfiguration, "state", err)
		}
	}

	providerOpts := []ingestion.ProviderOption{
		ingestion.WithRateLimit(cfg.Sync.EmbedRPS),
		ingestion.WithProviderLogger(logger),
	}
	if state != nil {
		providerOpts = append(providerOpts, ingestion.WithCache(state.Cache, cfg.Sync.CacheTTL))
	}
	provider, err := ingestion.NewEmbeddingProvider(embedder, cfg.AI, providerOpts...)
	if err != nil {
		state.Close()
		return nil, core.NewFailure(core.KindConfiguration, "embedder", err)
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithBatchSize(cfg.Sync.BatchSize),
		ingestion.WithOwner(cfg.Knowledge.AssistantID, cfg.Knowledge.AccountID),
		ingestion.WithLogger(logger),
	}
	if state != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithCheckpoints(state.Checkpoints))
	}
	pipeline, err := ingestion.NewPipeline(client, connector, provider, pipelineOpts...)
	if err != nil {
		state.Close()
		return nil, core.NewFailure(core.KindConfiguration, "pipeline", err)
	}

	return &Service{
		cfg:       cfg,
		feed:      client,
		embedder:  embedder,
		provider:  provider,
		connector: connector,
		state:     state,
		pipeline:  pipeline,
		logger:    logger,
	}, nil
}

// Close releases the local state store.
func (s *Service) Close() error {
	if err := s.state.Close(); err != nil {
		s.logger.Error("error closing local state", "err", err)
		return err
	}
	return nil
}

// Pipeline returns the sync pipeline.
func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// RunOnce runs a single sync cycle.
func (s *Service) RunOnce(ctx context.Context) (*ingestion.CycleReport, error) {
	return s.pipeline.RunCycle(ctx)
}

// NewScheduler returns a scheduler using the configured interval and backoff.
func (s *Service) NewScheduler(opts ...ingestion.SchedulerOption) (*ingestion.Scheduler, error) {
	base := []ingestion.SchedulerOption{
		ingestion.WithInterval(s.cfg.Sync.Interval),
		ingestion.WithBackoff(s.cfg.Sync.Backoff),
		ingestion.WithSchedulerLogger(s.logger),
	}
	return ingestion.NewScheduler(s.pipeline, append(base, opts...)...)
}

// Search embeds query and returns up to maxHits matching products.
// It opens its own knowledge-base session.
func (s *Service) Search(ctx context.Context, query string, maxHits int, opts ...search.Option) ([]*core.SearchResult, error) {
	repo, err := s.connector.Open(ctx)
	if err != nil {
		return nil, core.NewFailure(core.KindPersistence, "connect", err)
	}
	defer func() {
		if err := repo.Close(ctx); err != nil {
			s.logger.Warn("error closing repository", "err", err)
		}
	}()

	base := []search.Option{
		search.WithLogger(s.logger),
		search.WithMaxInputChars(s.cfg.AI.MaxInputChars),
	}
	searcher, err := search.NewSearcher(repo, s.embedder, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return searcher.FindSimilar(ctx, query, maxHits)
}

// Migrate creates the knowledge-base schema.
func (s *Service) Migrate(ctx context.Context) error {
	return postgres.Migrate(ctx, s.cfg.Database.ConnString(), s.cfg.Knowledge.Table, s.cfg.AI.Dimensions, s.logger)
}

// LastCheckpoint returns the summary of the last finished cycle, or nil when
// no cycle has finished. Returns ErrStateDisabled when the service was built
// without local state.
func (s *Service) LastCheckpoint(ctx context.Context) (*core.Checkpoint, error) {
	if s.state == nil {
		return nil, ErrStateDisabled
	}
	return s.state.Checkpoints.LoadCheckpoint(ctx)
}

// ReadCheckpoint opens cfg.StateDir just long enough to read the last
// checkpoint. It returns ErrServiceRunning when a sync service holds the
// directory and ErrStateDisabled when STATE_DIR is unset.
func ReadCheckpoint(ctx context.Context, cfg *config.Config) (*core.Checkpoint, error) {
	if cfg == nil {
		return nil, core.NewFailure(core.KindConfiguration, "", config.ErrConfigRequired)
	}
	if cfg.StateDir == "" {
		return nil, ErrStateDisabled
	}
	state, err := openState(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	defer state.Close()
	return state.Checkpoints.LoadCheckpoint(ctx)
}

func openState(dir string) (*badger.Stores, error) {
	state, err := badger.OpenStores(dir)
	if errors.Is(err, storage.ErrStateLocked) {
		return nil, fmt.Errorf("%w: %w", ErrServiceRunning, err)
	}
	return state, err
}
