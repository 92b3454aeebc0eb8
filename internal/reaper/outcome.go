package reaper

import "time"

// Action classifies the result of one deletion attempt
type Action string

const (
	ActionDeleted  Action = "DELETE"
	ActionNotFound Action = "NOT_FOUND"
	ActionError    Action = "ERROR"
)

// MetricLabel returns the Prometheus label value for the action
func (a Action) MetricLabel() string {
	switch a {
	case ActionDeleted:
		return "deleted"
	case ActionNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Outcome describes one executor run. It is never returned to callers of the
// deletion operations; it is handed to recorders only.
type Outcome struct {
	Path    string
	Action  Action
	Size    int64         // Bytes observed before removal, 0 unless deleted
	Err     error         // Set when Action is ActionError
	Delayed bool          // Ran from a delayed request
	Delay   time.Duration // Requested delay for delayed runs
	At      time.Time     // When the attempt started
	Took    time.Duration
}

// ErrorMessage returns the failure text, or "" on success
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
