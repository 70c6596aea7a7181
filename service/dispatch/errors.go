package dispatch

import "errors"

var (
	// ErrBusy is returned when a decision for the same composite key is
	// already outstanding.
	ErrBusy = errors.New("dispatch: decision already in flight for this approval")

	// ErrBulkInFlight is returned when a bulk operation is running; it blocks
	// both a second bulk and individual decisions.
	ErrBulkInFlight = errors.New("dispatch: bulk operation in flight")

	// ErrInvalidVerb is returned for verbs outside the approve/reject set.
	ErrInvalidVerb = errors.New("dispatch: invalid decision verb")
)
