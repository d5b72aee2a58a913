package pipeline

import "fmt"

// ItemState is the processing state of one item within a batch.
type ItemState int

const (
	StatePending ItemState = iota
	StateExtracting
	StateExtracted
	StateAnalyzing
	StateConsolidating
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StatePending:       "pending",
	StateExtracting:    "extracting",
	StateExtracted:     "extracted",
	StateAnalyzing:     "analyzing",
	StateConsolidating: "consolidating",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s ItemState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s ItemState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next lists the forward transition of every non-terminal state. Failed is
// reachable from any non-terminal state.
var next = map[ItemState]ItemState{
	StatePending:       StateExtracting,
	StateExtracting:    StateExtracted,
	StateExtracted:     StateAnalyzing,
	StateAnalyzing:     StateConsolidating,
	StateConsolidating: StateDone,
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to ItemState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[from] == to
}

// Observer receives every state transition of every item.
type Observer interface {
	OnTransition(itemID string, from, to ItemState)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(itemID string, from, to ItemState)

func (f ObserverFunc) OnTransition(itemID string, from, to ItemState) {
	f(itemID, from, to)
}

// tracker follows one item through the state machine.
type tracker struct {
	itemID   string
	state    ItemState
	observer Observer
}

func (t *tracker) advance(to ItemState) error {
	if !CanTransition(t.state, to) {
		return fmt.Errorf("illegal transition %s -> %s for item %s", t.state, to, t.itemID)
	}
	from := t.state
	t.state = to
	if t.observer != nil {
		t.observer.OnTransition(t.itemID, from, to)
	}
	return nil
}
