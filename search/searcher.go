package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/document"
)

const (
	// DefaultMinSimilarity is the cosine similarity floor for a hit.
	DefaultMinSimilarity float32 = 0.60

	// verbatimBoost is added when every query word appears in the record.
	verbatimBoost float32 = 0.3
)

// Index finds knowledge-base records near a vector.
type Index interface {
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// Searcher answers free-text queries against the product knowledge base.
type Searcher struct {
	index         Index
	embedder      ai.Embedder
	minSimilarity float32
	maxChars      int
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the similarity floor, between 0 and 1.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < 0 || min > 1 {
			return ErrInvalidSimilarity
		}
		s.minSimilarity = min
		return nil
	}
}

// WithMaxInputChars caps the query length sent to the embedder.
func WithMaxInputChars(n int) Option {
	return func(s *Searcher) error {
		s.maxChars = n
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index Index, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:         index,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		maxChars:      ai.DefaultConfig().MaxInputChars,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// FindSimilar returns up to maxHits products similar to the query, best first.
// Records containing every query word rank above those matched by vector alone.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits < 1 {
		return nil, ErrInvalidMaxHits
	}

	embedding, err := s.embedder.EmbedText(ctx, document.Truncate(query, s.maxChars))
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, core.NewFailure(core.KindEmbedding, "query", err)
	}

	matches, err := s.index.FindSimilar(ctx, embedding, s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar records", "err", err)
		return nil, core.NewFailure(core.KindPersistence, "query", err)
	}

	results := make([]*core.SearchResult, 0, len(matches))
	for _, match := range matches {
		if match == nil || match.Record == nil {
			continue
		}
		score := match.Score
		if containsAllQueryWords(match.Record.Content, query) {
			score += verbatimBoost
		}
		results = append(results, &core.SearchResult{Record: match.Record, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	s.logger.Debug("search complete", "query", query, "hits", len(results))

	return results, nil
}
