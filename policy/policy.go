// Package policy provides a simple, optional auto-decision layer that can be
// attached to a running engine via context or configuration. It is
// deliberately decoupled from the rest of the engine so that using it is
// entirely opt-in - engines without a policy leave every item for the
// operator.
package policy

import (
	"context"
	"strings"

	"github.com/handrail/handrail/model/approval"
)

// Decision modes recognised by the engine.
const (
	ModeAsk  = "ask"  // leave items for the operator (default)
	ModeAuto = "auto" // auto-approve allow-listed agents
	ModeDeny = "deny" // auto-reject everything
)

// Policy represents the auto-decision settings for a running engine.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList filter by agent id regardless of Mode: block-listed
//     agents are always rejected; in auto mode an empty allow list means all.
//
// A nil *Policy means "ask the operator about everything" and is therefore
// the zero-cost default.
type Policy struct {
	Mode      string
	AllowList []string
	BlockList []string
}

// Config is the declarative, serialisable form of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// Decide returns the automatic verb for an agent's pending item and whether
// one applies; (_, false) means the item stays with the operator. Agent ids
// match by exact, case-insensitive comparison; the block list has priority.
func (p *Policy) Decide(agentID string) (approval.Verb, bool) {
	if p == nil {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(agentID))

	for _, blocked := range p.BlockList {
		if normalized == strings.ToLower(blocked) {
			return approval.VerbReject, true
		}
	}

	switch p.Mode {
	case ModeDeny:
		return approval.VerbReject, true
	case ModeAuto:
		if len(p.AllowList) == 0 {
			return approval.VerbApprove, true
		}
		for _, allowed := range p.AllowList {
			if normalized == strings.ToLower(allowed) {
				return approval.VerbApprove, true
			}
		}
	}
	return "", false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy, or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
