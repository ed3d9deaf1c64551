package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/ai/mock"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage"
)

const testDims = 8

// fakeFeed serves stores and products from memory.
type fakeFeed struct {
	stores      []core.Store
	storesErr   error
	products    map[string][]core.Product
	productErrs map[string]error
}

func (f *fakeFeed) FetchStores(ctx context.Context) ([]core.Store, error) {
	if f.storesErr != nil {
		return nil, core.NewFailure(core.KindFeed, "stores", f.storesErr)
	}
	return f.stores, nil
}

func (f *fakeFeed) FetchProducts(ctx context.Context, store *core.Store) ([]core.Product, error) {
	id := store.ID.String()
	if err, ok := f.productErrs[id]; ok {
		return nil, core.NewFailure(core.KindFeed, "store "+id, err)
	}
	return f.products[id], nil
}

// memRepo is an in-memory CatalogRepository with transaction semantics:
// writes are staged until Commit and dropped by Rollback.
type memRepo struct {
	mu        sync.Mutex
	committed map[string]*core.CatalogRecord
	staged    map[string]*core.CatalogRecord
	nextID    int64

	commits   int
	rollbacks int
	inserts   int
	updates   int
	closed    bool
	touched   []string // product ids passed to any statement

	commitErr  func(n int) error // n is the 1-based commit number
	insertHook func(rec *core.CatalogRecord) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		committed: map[string]*core.CatalogRecord{},
		staged:    map[string]*core.CatalogRecord{},
	}
}

func (r *memRepo) lookup(productID string) (*core.CatalogRecord, bool) {
	if rec, ok := r.staged[productID]; ok {
		return rec, true
	}
	rec, ok := r.committed[productID]
	return rec, ok
}

func (r *memRepo) FindByProductID(ctx context.Context, productID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, productID)
	if rec, ok := r.lookup(productID); ok {
		return rec.ID, nil
	}
	return 0, storage.ErrNotFound
}

func (r *memRepo) Insert(ctx context.Context, record *core.CatalogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, record.ProductID)
	if r.insertHook != nil {
		if err := r.insertHook(record); err != nil {
			return err
		}
	}
	if _, ok := r.lookup(record.ProductID); ok {
		return storage.ErrDuplicateKey
	}
	r.nextID++
	rec := *record
	rec.ID = r.nextID
	record.ID = rec.ID
	r.staged[record.ProductID] = &rec
	r.inserts++
	return nil
}

func (r *memRepo) Update(ctx context.Context, record *core.CatalogRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, record.ProductID)
	existing, ok := r.lookup(record.ProductID)
	if !ok {
		return storage.ErrNotFound
	}
	rec := *record
	rec.ID = existing.ID
	r.staged[record.ProductID] = &rec
	r.updates++
	return nil
}

func (r *memRepo) Commit(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits++
	if r.commitErr != nil {
		if err := r.commitErr(r.commits); err != nil {
			r.staged = map[string]*core.CatalogRecord{}
			return err
		}
	}
	for id, rec := range r.staged {
		r.committed[id] = rec
	}
	r.staged = map[string]*core.CatalogRecord{}
	return nil
}

func (r *memRepo) Rollback(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbacks++
	r.staged = map[string]*core.CatalogRecord{}
	return nil
}

func (r *memRepo) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return nil, errors.New("not implemented")
}

func (r *memRepo) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staged = map[string]*core.CatalogRecord{}
	r.closed = true
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func (r *memRepo) record(productID string) *core.CatalogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed[productID]
}

// reopen lets the same table be used across cycles.
func (r *memRepo) reopen() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = false
}

// connectorFor returns a connector handing out repo, failing the first failures opens.
func connectorFor(repo *memRepo, failures int) (storage.Connector, *int) {
	opens := 0
	return storage.ConnectorFunc(func(ctx context.Context) (storage.CatalogRepository, error) {
		opens++
		if opens <= failures {
			return nil, fmt.Errorf("dial tcp: connection refused (attempt %d)", opens)
		}
		repo.reopen()
		return repo, nil
	}), &opens
}

func testConfig() *ai.Config {
	return ai.NewConfig(ai.WithAPIKey("sk-test"), ai.WithDimensions(testDims))
}

func newTestProvider(embedder ai.Embedder, opts ...ProviderOption) *EmbeddingProvider {
	p, err := NewEmbeddingProvider(embedder, testConfig(), opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func newTestEmbedder() *mock.MockEmbedder {
	return mock.NewMockEmbedderWithDimensions(testDims)
}

func store(id string) core.Store {
	return core.Store{
		ID:             core.Text(id),
		Name:           "Tienda " + id,
		ProductFeedURL: "http://feeds.example/" + id,
	}
}

func product(id, name string) core.Product {
	return core.Product{
		ID:    core.Text(id),
		SKU:   core.Text("SKU-" + id),
		Name:  core.Text(name),
		Price: "1000",
		Stock: "5",
	}
}

func products(n int) []core.Product {
	out := make([]core.Product, n)
	for i := range out {
		id := fmt.Sprintf("p%03d", i+1)
		out[i] = product(id, "Producto "+id)
	}
	return out
}
