package store

// State is the lifecycle of the in-memory collection.
//
//	idle -> loading -> ready | errored
//	ready -> refreshing -> ready
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateRefreshing State = "refreshing"
	StateErrored    State = "errored"
)

// Loaded reports whether the collection has been fetched at least once.
func (s State) Loaded() bool {
	return s == StateReady || s == StateRefreshing
}

// ReorderResult tells the caller how an optimistic reorder settled.
type ReorderResult string

const (
	// ReorderApplied: the collaborator accepted the new order.
	ReorderApplied ReorderResult = "applied"
	// ReorderReconciling: the collaborator rejected it and the collection was
	// replaced by a fresh read.
	ReorderReconciling ReorderResult = "reconciling"
	// ReorderFailed: the fresh read failed too; the previous order is back.
	ReorderFailed ReorderResult = "failed"
)
