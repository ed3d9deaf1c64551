package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/ai/mock"
	"github.com/poiesic/catalogsync/config"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
	"github.com/poiesic/catalogsync/storage/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

// tableRepo is a minimal auto-committing CatalogRepository.
type tableRepo struct {
	mu      sync.Mutex
	rows    map[string]*core.CatalogRecord
	similar []*core.SearchResult
	closes  int
}

func (r *tableRepo) FindByProductID(ctx context.Context, productID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.rows[productID]; ok {
		return rec.ID, nil
	}
	return 0, storage.ErrNotFound
}

func (r *tableRepo) Insert(ctx context.Context, record *core.CatalogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *record
	rec.ID = int64(len(r.rows) + 1)
	r.rows[record.ProductID] = &rec
	return nil
}

func (r *tableRepo) Update(ctx context.Context, record *core.CatalogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := *record
	r.rows[record.ProductID] = &rec
	return nil
}

func (r *tableRepo) Commit(ctx context.Context) error   { return nil }
func (r *tableRepo) Rollback(ctx context.Context) error { return nil }

func (r *tableRepo) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.similar, nil
}

func (r *tableRepo) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/stores", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"id_store": 7, "name": "Tienda Siete", "productos_json_url": "%s/products/7"}]`, srv.URL)
	})
	mux.HandleFunc("/products/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 101, "name": "Taza", "sku": "T-1", "price": "1500.50", "stock": 3},
			{"id": "102", "name": "Plato", "description": "<p>Plato&nbsp;hondo</p>"}
		]`)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, storesURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Feed: config.FeedConfig{StoresURL: storesURL, Timeout: 5 * time.Second},
		AI:   ai.NewConfig(ai.WithAPIKey("sk-test"), ai.WithDimensions(testDims)),
		Database: postgres.Params{
			Host: "localhost", Port: "5432", User: "sync", Password: "secret", Database: "kb",
		},
		Knowledge: config.KnowledgeConfig{Table: postgres.DefaultTable, AssistantID: 3, AccountID: 9},
		Sync: config.SyncConfig{
			BatchSize: 20,
			Interval:  time.Hour,
			Backoff:   time.Minute,
			CacheTTL:  time.Hour,
		},
		StateDir: t.TempDir(),
	}
}

func newTestService(t *testing.T, cfg *config.Config, repo *tableRepo) *Service {
	t.Helper()
	svc, err := NewService(cfg,
		WithEmbedder(mock.NewMockEmbedderWithDimensions(testDims)),
		WithConnector(storage.ConnectorFunc(func(ctx context.Context) (storage.CatalogRepository, error) {
			return repo, nil
		})))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := NewService(nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	cfg := testConfig(t, "")
	_, err = NewService(cfg)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "STORES_URL")
}

func TestNewService_DefaultComponents(t *testing.T) {
	cfg := testConfig(t, "http://stores.example/activas")
	cfg.StateDir = ""

	svc, err := NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	assert.NotNil(t, svc.Pipeline())
	assert.IsType(t, &postgres.Connector{}, svc.connector)

	_, err = svc.LastCheckpoint(context.Background())
	assert.ErrorIs(t, err, ErrStateDisabled)
}

func TestService_StateDirIsExclusive(t *testing.T) {
	srv := newFeedServer(t)
	repo := &tableRepo{rows: map[string]*core.CatalogRecord{}}
	cfg := testConfig(t, srv.URL+"/stores")
	svc := newTestService(t, cfg, repo)

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	// a second syncing service cannot share the directory
	_, err = NewService(cfg, WithEmbedder(mock.NewMockEmbedderWithDimensions(testDims)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceRunning)
	assert.ErrorIs(t, err, storage.ErrStateLocked)

	_, err = ReadCheckpoint(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrServiceRunning)

	// commands that never sync leave the directory alone
	other, err := NewService(cfg,
		WithEmbedder(mock.NewMockEmbedderWithDimensions(testDims)),
		WithoutLocalState())
	require.NoError(t, err)
	_, err = other.LastCheckpoint(context.Background())
	assert.ErrorIs(t, err, ErrStateDisabled)
	require.NoError(t, other.Close())

	require.NoError(t, svc.Close())
	checkpoint, err := ReadCheckpoint(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, 2, checkpoint.Succeeded)
}

func TestReadCheckpoint_Disabled(t *testing.T) {
	cfg := testConfig(t, "http://stores.example/activas")
	cfg.StateDir = ""
	_, err := ReadCheckpoint(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrStateDisabled)

	_, err = ReadCheckpoint(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestService_RunOnce(t *testing.T) {
	srv := newFeedServer(t)
	repo := &tableRepo{rows: map[string]*core.CatalogRecord{}}
	svc := newTestService(t, testConfig(t, srv.URL+"/stores"), repo)
	ctx := context.Background()

	checkpoint, err := svc.LastCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, checkpoint)

	report, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)

	require.Len(t, repo.rows, 2)
	taza := repo.rows["101"]
	require.NotNil(t, taza)
	assert.Equal(t, "7", taza.StoreID)
	assert.Equal(t, int64(3), taza.AssistantID)
	assert.Equal(t, int64(9), taza.AccountID)
	assert.JSONEq(t, `{"id": 101, "name": "Taza", "sku": "T-1", "price": "1500.50", "stock": 3}`, taza.Content)
	assert.Len(t, taza.ContentVector, testDims)

	checkpoint, err = svc.LastCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, report.RunID, checkpoint.RunID)
	assert.Equal(t, 2, checkpoint.Succeeded)
}

func TestService_SecondCycleUsesCache(t *testing.T) {
	srv := newFeedServer(t)
	repo := &tableRepo{rows: map[string]*core.CatalogRecord{}}
	embedder := mock.NewMockEmbedderWithDimensions(testDims)
	svc, err := NewService(testConfig(t, srv.URL+"/stores"),
		WithEmbedder(embedder),
		WithConnector(storage.ConnectorFunc(func(ctx context.Context) (storage.CatalogRepository, error) {
			return repo, nil
		})))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = svc.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, embedder.CallCount(), "unchanged products are not re-embedded")
	assert.Len(t, repo.rows, 2)
}

func TestService_Search(t *testing.T) {
	repo := &tableRepo{
		rows: map[string]*core.CatalogRecord{},
		similar: []*core.SearchResult{
			{Record: &core.CatalogRecord{ProductID: "101", Content: `{"name":"Taza"}`}, Score: 0.7},
		},
	}
	svc := newTestService(t, testConfig(t, "http://stores.example/activas"), repo)

	results, err := svc.Search(context.Background(), "taza", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "101", results[0].Record.ProductID)
	assert.Equal(t, 1, repo.closes)
}

func TestService_SearchConnectFailure(t *testing.T) {
	svc, err := NewService(testConfig(t, "http://stores.example/activas"),
		WithEmbedder(mock.NewMockEmbedderWithDimensions(testDims)),
		WithConnector(storage.ConnectorFunc(func(ctx context.Context) (storage.CatalogRepository, error) {
			return nil, errors.New("connection refused")
		})))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Search(context.Background(), "taza", 5)
	assert.ErrorIs(t, err, core.ErrPersistence)
}

func TestService_NewScheduler(t *testing.T) {
	svc := newTestService(t, testConfig(t, "http://stores.example/activas"), &tableRepo{rows: map[string]*core.CatalogRecord{}})

	scheduler, err := svc.NewScheduler()
	require.NoError(t, err)
	assert.Equal(t, svc.Pipeline().State(), scheduler.State())
}
