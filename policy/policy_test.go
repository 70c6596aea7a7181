package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/handrail/handrail/model/approval"
)

func TestDecide(t *testing.T) {
	type testCase struct {
		name     string
		policy   *Policy
		agentID  string
		verb     approval.Verb
		decided  bool
	}
	tests := []testCase{
		{name: "nil policy asks", policy: nil, agentID: "h1", decided: false},
		{name: "default mode asks", policy: &Policy{}, agentID: "h1", decided: false},
		{name: "deny mode rejects all", policy: &Policy{Mode: ModeDeny}, agentID: "h1", verb: approval.VerbReject, decided: true},
		{name: "auto with empty allow approves all", policy: &Policy{Mode: ModeAuto}, agentID: "h1", verb: approval.VerbApprove, decided: true},
		{name: "auto approves allow-listed", policy: &Policy{Mode: ModeAuto, AllowList: []string{"h1"}}, agentID: "H1", verb: approval.VerbApprove, decided: true},
		{name: "auto asks for unlisted", policy: &Policy{Mode: ModeAuto, AllowList: []string{"h1"}}, agentID: "h2", decided: false},
		{name: "block list beats auto", policy: &Policy{Mode: ModeAuto, BlockList: []string{"h1"}}, agentID: "h1", verb: approval.VerbReject, decided: true},
		{name: "block list applies in ask mode", policy: &Policy{Mode: ModeAsk, BlockList: []string{"h1"}}, agentID: "h1", verb: approval.VerbReject, decided: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verb, decided := tc.policy.Decide(tc.agentID)
			assert.Equal(t, tc.decided, decided)
			if tc.decided {
				assert.Equal(t, tc.verb, verb)
			}
		})
	}
}

func TestConfigRoundTrip(t *testing.T) {
	p := &Policy{Mode: ModeAuto, AllowList: []string{"h1"}, BlockList: []string{"h2"}}
	assert.Equal(t, p, FromConfig(ToConfig(p)))
	assert.Nil(t, ToConfig(nil))
	assert.Nil(t, FromConfig(nil))
}

func TestContextCarriage(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	p := &Policy{Mode: ModeDeny}
	ctx := WithPolicy(context.Background(), p)
	assert.Equal(t, p, FromContext(ctx))
}
