package ingestion

import (
	"time"

	"github.com/poiesic/catalogsync/core"
)

// ProductResult is the outcome of one product within a cycle.
type ProductResult struct {
	ProductID string
	Name      string
	Action    core.UpsertAction
	Cached    bool  // vector came from the local cache
	Err       error // *core.Failure when the product failed
}

// OK reports whether the product was written.
func (r ProductResult) OK() bool {
	return r.Err == nil
}

// StoreResult is the outcome of one store within a cycle.
type StoreResult struct {
	StoreID   string
	Name      string
	Products  int // products listed by the feed
	Processed int
	Succeeded int
	Failed    int
	Commits   int
	Err       error // feed or persistence failure that ended the store early
}

// CycleReport summarizes one pass over every store.
type CycleReport struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	Processed    int
	Succeeded    int
	Failed       int
	Stores       []StoreResult
	StoresFailed int
}

func (r *CycleReport) add(store StoreResult) {
	r.Stores = append(r.Stores, store)
	r.Processed += store.Processed
	r.Succeeded += store.Succeeded
	r.Failed += store.Failed
	if store.Err != nil {
		r.StoresFailed++
	}
}

// SuccessRate returns the percentage of processed products that succeeded.
// A cycle that processed nothing reports 0.
func (r *CycleReport) SuccessRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Processed) * 100
}

// Checkpoint converts the report into its persisted form.
func (r *CycleReport) Checkpoint(cycleErr error) *core.Checkpoint {
	c := &core.Checkpoint{
		RunID:        r.RunID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.StartedAt.Add(r.Duration),
		Processed:    r.Processed,
		Succeeded:    r.Succeeded,
		Failed:       r.Failed,
		Stores:       len(r.Stores),
		StoresFailed: r.StoresFailed,
		Duration:     r.Duration,
	}
	if cycleErr != nil {
		c.Error = cycleErr.Error()
	}
	return c
}
