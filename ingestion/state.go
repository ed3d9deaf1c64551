package ingestion

// State is a phase of the sync loop.
type State int

const (
	StateIdle State = iota
	StateFetchingStores
	StateFetchingProducts
	StateComposing
	StateEmbedding
	StateUpserting
	StateCycleComplete
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingStores:
		return "fetching-stores"
	case StateFetchingProducts:
		return "fetching-products"
	case StateComposing:
		return "composing"
	case StateEmbedding:
		return "embedding"
	case StateUpserting:
		return "upserting"
	case StateCycleComplete:
		return "cycle-complete"
	case StateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
