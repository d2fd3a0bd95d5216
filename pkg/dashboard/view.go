package dashboard

import (
	"context"
	"sync"

	"soxmon/pkg/models"
)

// Source produces snapshots. *Loader is the production implementation.
type Source interface {
	LoadAll(ctx context.Context) (*models.Snapshot, error)
}

// State is what the presentation layer renders. Exactly one of Snapshot and
// Err is set once a cycle has completed.
type State struct {
	Loading  bool
	Snapshot *models.Snapshot
	Err      error
	// Cycle numbers the load whose outcome is shown; 0 before the first one.
	Cycle uint64
}

// View holds the dashboard state across load cycles.
//
// Overlapping refreshes are not de-duplicated: each cycle replaces the whole
// state when it completes, so the last one to finish wins.
type View struct {
	source Source

	// notifyMu orders notifications the same way as state changes.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state    State
	started  uint64
	inFlight int
	watchers []func(State)
}

// NewView returns a view that loads through source.
func NewView(source Source) *View {
	return &View{source: source}
}

// Subscribe registers fn to receive every state change, in the order the
// changes were made. fn must not call Refresh or Reset.
func (v *View) Subscribe(fn func(State)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watchers = append(v.watchers, fn)
}

// State returns the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Refresh runs one load cycle and returns the state it produced.
func (v *View) Refresh(ctx context.Context) State {
	cycle := v.begin()
	snap, err := v.source.LoadAll(ctx)
	return v.finish(cycle, snap, err)
}

// Reset forgets everything, e.g. after logout or session expiry.
func (v *View) Reset() {
	v.update(func(state *State) {
		*state = State{Loading: v.inFlight > 0}
	})
}

func (v *View) begin() uint64 {
	var cycle uint64
	v.update(func(state *State) {
		v.started++
		v.inFlight++
		cycle = v.started
		state.Loading = true
	})
	return cycle
}

func (v *View) finish(cycle uint64, snap *models.Snapshot, err error) State {
	var result State
	v.update(func(state *State) {
		v.inFlight--
		*state = State{Loading: v.inFlight > 0, Cycle: cycle}
		if err != nil {
			state.Err = err
		} else {
			state.Snapshot = snap
		}
		result = *state
	})
	return result
}

// update mutates state under mu, then notifies watchers outside it while
// notifyMu keeps the next change waiting.
func (v *View) update(mutate func(*State)) {
	v.notifyMu.Lock()
	defer v.notifyMu.Unlock()

	v.mu.Lock()
	mutate(&v.state)
	state := v.state
	watchers := append([]func(State){}, v.watchers...)
	v.mu.Unlock()

	for _, fn := range watchers {
		fn(state)
	}
}
