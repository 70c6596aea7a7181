package envelope

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/viant/toolbox"

	"github.com/handrail/handrail/internal/clock"
	"github.com/handrail/handrail/model/approval"
)

// Closed event-type sets; matching is exact and case-sensitive. Unrecognised
// labels are expected noise, not errors.
var (
	requiredEvents = map[string]bool{
		"approval_required":      true,
		"approval.pending":       true,
		"hand.approval_required": true,
	}
	resolvedEvents = map[string]bool{
		"approval_resolved":      true,
		"approval_approved":      true,
		"approval_rejected":      true,
		"approval.completed":     true,
		"hand.approval_resolved": true,
	}
)

// Alias-priority lookup tables, one per logical field. The first alias that
// yields a non-empty value wins. Upstream producers disagree on key naming,
// hence the breadth.
var (
	eventTypeAliases   = []string{"type", "event", "name"}
	agentIDAliases     = []string{"hand_id", "handId", "agent_id", "agentId", "id"}
	actionIDAliases    = []string{"action_id", "actionId", "approval_id", "approvalId"}
	agentNameAliases   = []string{"hand_name", "handName", "agent_name", "agentName"}
	descriptionAliases = []string{"action_description", "actionDescription", "description"}
	riskAliases        = []string{"risk_level", "riskLevel", "risk"}
	timestampAliases   = []string{"timestamp", "created_at", "createdAt", "requested_at", "requestedAt"}
	reasonAliases      = []string{"reason"}
	toolsAliases       = []string{"tools", "tool_names", "toolNames"}
	previewAliases     = []string{"preview", "action_preview", "actionPreview"}
	contextAliases     = []string{"context"}
)

// Parse turns one raw frame into an Instruction. Input is untrusted; any
// failure yields KindIgnore, never an error.
func Parse(frame Frame) Instruction {
	var env map[string]interface{}
	if err := json.Unmarshal(frame.Data, &env); err != nil {
		return Ignore("malformed json")
	}
	if env == nil {
		return Ignore("empty envelope")
	}

	eventType := frame.Label
	if !requiredEvents[eventType] && !resolvedEvents[eventType] {
		eventType = stringAt(env, eventTypeAliases)
	}

	switch {
	case requiredEvents[eventType]:
		return parseRequired(env)
	case resolvedEvents[eventType]:
		return parseResolved(env)
	}
	return Ignore("unrecognized event type")
}

func parseRequired(env map[string]interface{}) Instruction {
	payload, key, ok := identify(env)
	if !ok {
		return Ignore("missing agent or action id")
	}
	item := &approval.Item{
		AgentID:     key.AgentID,
		ActionID:    key.ActionID,
		AgentName:   stringAt(payload, agentNameAliases),
		Description: stringAt(payload, descriptionAliases),
		Risk:        approval.NormalizeRisk(stringAt(payload, riskAliases)),
		Timestamp:   timestampAt(payload),
		Reason:      stringAt(payload, reasonAliases),
		Tools:       stringsAt(payload, toolsAliases),
		Preview:     stringAt(payload, previewAliases),
		Context:     stringAt(payload, contextAliases),
	}
	item.ApplyDefaults()
	return Upsert(item)
}

func parseResolved(env map[string]interface{}) Instruction {
	_, key, ok := identify(env)
	if !ok {
		return Ignore("missing agent or action id")
	}
	return Remove(key)
}

// identify locates the payload object holding the composite identity: first
// the flat envelope itself, then the objects nested under "payload" and
// "data". The first object that yields both ids wins and also supplies every
// other field.
func identify(env map[string]interface{}) (map[string]interface{}, approval.Key, bool) {
	for _, candidate := range payloadCandidates(env) {
		key := approval.NewKey(stringAt(candidate, agentIDAliases), stringAt(candidate, actionIDAliases))
		if key.IsValid() {
			return candidate, key, true
		}
	}
	return nil, approval.Key{}, false
}

func payloadCandidates(env map[string]interface{}) []map[string]interface{} {
	candidates := []map[string]interface{}{env}
	for _, alias := range []string{"payload", "data"} {
		if nested, ok := env[alias].(map[string]interface{}); ok {
			candidates = append(candidates, nested)
		}
	}
	return candidates
}

func stringAt(payload map[string]interface{}, aliases []string) string {
	for _, alias := range aliases {
		value, ok := payload[alias]
		if !ok {
			continue
		}
		if text, ok := value.(string); ok {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func stringsAt(payload map[string]interface{}, aliases []string) []string {
	for _, alias := range aliases {
		items, ok := payload[alias].([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// timestampAt parses the request time. RFC-3339 is tried first, then a
// lenient toolbox conversion (which also accepts numeric epochs). A value
// that cannot be parsed defaults to now - a known hazard for delayed
// notifications whose intended ordering is then lost.
func timestampAt(payload map[string]interface{}) time.Time {
	var raw interface{}
	for _, alias := range timestampAliases {
		if value, ok := payload[alias]; ok && value != nil {
			raw = value
			break
		}
	}
	if raw == nil {
		return clock.Now()
	}
	if text, ok := raw.(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, text); err == nil {
			return ts
		}
	}
	if ts, err := toolbox.ToTime(raw, time.RFC3339); err == nil && ts != nil {
		return *ts
	}
	return clock.Now()
}
