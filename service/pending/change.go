package pending

import (
	"github.com/handrail/handrail/model/approval"
)

// ChangeKind labels a pending-set lifecycle event.
type ChangeKind string

const (
	ChangeUpserted ChangeKind = "item_upserted"
	ChangeRemoved  ChangeKind = "item_removed"
	ChangeHydrated ChangeKind = "set_hydrated"
)

// Change is the payload published on the event service after each mutation.
type Change struct {
	Kind ChangeKind     `json:"kind"`
	Key  approval.Key   `json:"key"`
	Item *approval.Item `json:"item,omitempty"`
}
