package event

import "time"

// Context carries the identity an event relates to, when any.
type Context struct {
	AgentID   string `json:"agentId,omitempty"`
	ActionID  string `json:"actionId,omitempty"`
	EventType string `json:"eventType"`
}

// Event is a typed lifecycle notification published by the engine so that
// observers (operator consoles, tests) can react without polling the set.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent builds an event with an empty metadata map.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
