package catalog

import "fmt"

// Status tracks an entry through the action lifecycle. Transitions only move
// forward; a regressing transition is a programming error and is rejected.
type Status int

const (
	// StatusPresent: the file was found on disk at build time.
	StatusPresent Status = iota
	// StatusMissing: no candidate path existed at build time.
	StatusMissing
	// StatusActionPending: an action is in flight for this entry.
	StatusActionPending
	// StatusActionDone: the action completed.
	StatusActionDone
	// StatusActionFailed: the action failed; a later run may retry.
	StatusActionFailed
)

func (s Status) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusMissing:
		return "missing"
	case StatusActionPending:
		return "pending"
	case StatusActionDone:
		return "done"
	case StatusActionFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// canTransition encodes the forward-only lattice:
// Present -> ActionPending -> (ActionDone | ActionFailed), with
// ActionFailed -> ActionPending allowed so a resumed run can retry.
// Missing entries never enter the lattice.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPresent:
		return to == StatusActionPending
	case StatusActionPending:
		return to == StatusActionDone || to == StatusActionFailed
	case StatusActionFailed:
		return to == StatusActionPending
	default:
		return false
	}
}
