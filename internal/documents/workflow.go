package documents

import "slices"

// Action is a lifecycle operation.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionCancel  Action = "cancel"
	ActionDelete  Action = "delete"
)

type rule struct {
	from []Status
	to   Status
}

// Approval requires status submitted for both kinds. Approved and cancelled
// are terminal; delete removes the document instead of moving it.
var workflow = map[Action]rule{
	ActionSubmit:  {from: []Status{StatusDraft}, to: StatusSubmitted},
	ActionApprove: {from: []Status{StatusSubmitted}, to: StatusApproved},
	ActionCancel:  {from: []Status{StatusDraft, StatusSubmitted}, to: StatusCancelled},
	ActionDelete:  {from: []Status{StatusDraft, StatusSubmitted, StatusCancelled}},
}

// Allowed reports whether action may run on a document in status from.
func Allowed(from Status, action Action) bool {
	r, ok := workflow[action]
	return ok && slices.Contains(r.from, from)
}

// sources lists the statuses action may start from.
func sources(action Action) []Status {
	return workflow[action].from
}

// target is the status action moves a document to.
func target(action Action) Status {
	return workflow[action].to
}
