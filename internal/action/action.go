// Package action infers the next sync action for an indexed entity from its
// previous indexing state and a fresh indexability decision.
package action

// Action is the operation the sync engine should perform next.
type Action string

const (
	Add      Action = "Add"
	Update   Action = "Update"
	Delete   Action = "Delete"
	NoAction Action = ""
)

func (a Action) String() string {
	if a == NoAction {
		return "No Action"
	}
	return string(a)
}

// State is the indexing state recorded for an entity after the last run.
type State struct {
	IsIndexable bool
	LastAction  Action
}

// Transition is the state an entity moves to after a discovery run.
type Transition struct {
	NextAction  Action
	IsIndexable bool
}

// Next computes the transition for an entity. previous is nil when the
// entity has never been discovered. modified marks entity data changed since
// the last sync.
//
// An entity that stops being indexable keeps IsIndexable=true with a pending
// Delete; the sync engine clears the flag once the delete has been sent.
func Next(previous *State, indexable, modified bool) Transition {
	if previous == nil {
		if indexable {
			return Transition{NextAction: Add, IsIndexable: true}
		}
		return Transition{NextAction: NoAction, IsIndexable: false}
	}

	switch {
	case previous.IsIndexable && !indexable:
		return Transition{NextAction: Delete, IsIndexable: true}
	case previous.IsIndexable && indexable:
		if modified {
			return Transition{NextAction: Update, IsIndexable: true}
		}
		return Transition{NextAction: NoAction, IsIndexable: true}
	case indexable:
		return Transition{NextAction: Add, IsIndexable: true}
	default:
		return Transition{NextAction: NoAction, IsIndexable: false}
	}
}
