package approval

import (
	"fmt"
	"strings"
	"time"
)

// RiskLevel classifies how dangerous a pending action is. The set is closed;
// anything else normalises to RiskUnknown.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskUnknown  RiskLevel = "unknown"
)

// NormalizeRisk maps an arbitrary upstream string onto the closed RiskLevel set.
func NormalizeRisk(value string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(value))) {
	case RiskLow:
		return RiskLow
	case RiskMedium:
		return RiskMedium
	case RiskHigh:
		return RiskHigh
	case RiskCritical:
		return RiskCritical
	}
	return RiskUnknown
}

// Verb is an operator decision on a pending item.
type Verb string

const (
	VerbApprove Verb = "approve"
	VerbReject  Verb = "reject"
)

// IsValid reports whether the verb belongs to the closed approve/reject set.
func (v Verb) IsValid() bool {
	return v == VerbApprove || v == VerbReject
}

// Key is the composite identity of a pending approval. No two items in the
// pending set ever share a Key.
type Key struct {
	AgentID  string `json:"agentId"`
	ActionID string `json:"actionId"`
}

// NewKey builds a Key from its two parts, trimming surrounding whitespace.
func NewKey(agentID, actionID string) Key {
	return Key{AgentID: strings.TrimSpace(agentID), ActionID: strings.TrimSpace(actionID)}
}

// IsValid reports whether both key parts are present.
func (k Key) IsValid() bool {
	return k.AgentID != "" && k.ActionID != ""
}

func (k Key) String() string {
	return k.AgentID + "/" + k.ActionID
}

// DefaultDescription is used when the upstream notification carries no
// human-readable summary for the action.
const DefaultDescription = "Pending action awaiting approval"

// Item is one sensitive action awaiting human sign-off.
type Item struct {
	AgentID     string    `json:"agentId"`
	ActionID    string    `json:"actionId"`
	AgentName   string    `json:"agentName,omitempty"`
	Description string    `json:"actionDescription,omitempty"`
	Risk        RiskLevel `json:"riskLevel"`
	Timestamp   time.Time `json:"timestamp"`
	Reason      string    `json:"reason,omitempty"`
	Tools       []string  `json:"tools,omitempty"`
	Preview     string    `json:"preview,omitempty"`
	Context     string    `json:"context,omitempty"`
}

// Key returns the item's composite identity.
func (i *Item) Key() Key {
	return Key{AgentID: i.AgentID, ActionID: i.ActionID}
}

// IsValid reports whether the item satisfies the minimal shape validator:
// both identity fields present. Items failing this check are dropped
// individually during hydration rather than failing the whole read.
func (i *Item) IsValid() bool {
	return i != nil && i.Key().IsValid()
}

// ApplyDefaults fills display fallbacks and normalises the risk level.
// It is idempotent.
func (i *Item) ApplyDefaults() {
	i.AgentID = strings.TrimSpace(i.AgentID)
	i.ActionID = strings.TrimSpace(i.ActionID)
	if strings.TrimSpace(i.AgentName) == "" {
		i.AgentName = fmt.Sprintf("Hand %s", i.AgentID)
	}
	if strings.TrimSpace(i.Description) == "" {
		i.Description = DefaultDescription
	}
	i.Risk = NormalizeRisk(string(i.Risk))
}
