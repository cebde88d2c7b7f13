package pipeline

// State is where a run currently is.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateUploading   State = "uploading"
	StateExtracting  State = "extracting"
	StateSummarizing State = "summarizing"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next lists the only forward transitions allowed. Any non-terminal state
// may also move to StateFailed.
var next = map[State]State{
	StateIdle:        StateValidating,
	StateValidating:  StateUploading,
	StateUploading:   StateExtracting,
	StateExtracting:  StateSummarizing,
	StateSummarizing: StatePersisting,
	StatePersisting:  StateDone,
}

// canMove reports whether from -> to is a legal transition. Generate starts
// a run directly at extracting, so idle -> extracting is legal too.
func canMove(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	if from == StateIdle && to == StateExtracting {
		return true
	}
	return next[from] == to
}
