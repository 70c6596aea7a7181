package subscriber

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/handrail/handrail/model/approval"
	"github.com/handrail/handrail/service/envelope"
	"github.com/handrail/handrail/service/messaging/memory"
	"github.com/handrail/handrail/service/pending"
)

func newSubscriber(t *testing.T) (*Service, *memory.Queue[envelope.Frame], *pending.Service) {
	t.Helper()
	frames := memory.NewQueue[envelope.Frame](memory.DefaultConfig())
	set := pending.New()
	svc, err := New(frames, set)
	assert.NoError(t, err)
	return svc, frames, set
}

func publishAndSettle(t *testing.T, frames *memory.Queue[envelope.Frame], set *pending.Service, raw string, wantLen int) {
	t.Helper()
	frame := envelope.NewFrame("", raw)
	assert.NoError(t, frames.Publish(context.Background(), &frame))
	assert.Eventually(t, func() bool { return set.Len() == wantLen }, time.Second, 5*time.Millisecond)
}

func TestSubscriberReconciliation(t *testing.T) {
	svc, frames, set := newSubscriber(t)
	svc.Start(context.Background())
	defer svc.Shutdown()

	// A required notification creates the item.
	publishAndSettle(t, frames, set,
		`{"type":"approval_required","payload":{"hand_id":"h1","action_id":"a1","risk_level":"high","timestamp":"2024-01-01T00:00:00Z"}}`, 1)

	// Noise frames leave the set untouched.
	frame := envelope.NewFrame("", "not json")
	assert.NoError(t, frames.Publish(context.Background(), &frame))

	// A second required notification for another key.
	publishAndSettle(t, frames, set,
		`{"type":"approval_required","payload":{"hand_id":"h2","action_id":"a2","timestamp":"2024-01-01T01:00:00Z"}}`, 2)

	// Resolving h1/a1 removes exactly that item.
	publishAndSettle(t, frames, set,
		`{"type":"approval_resolved","payload":{"hand_id":"h1","action_id":"a1"}}`, 1)
	snapshot := set.Snapshot(context.Background())
	assert.Equal(t, approval.NewKey("h2", "a2"), snapshot[0].Key())

	// Resolving an absent key is a no-op.
	frame = envelope.NewFrame("", `{"type":"approval_resolved","payload":{"hand_id":"h1","action_id":"a1"}}`)
	assert.NoError(t, frames.Publish(context.Background(), &frame))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, set.Len())
}

func TestTransportStateMachine(t *testing.T) {
	var notices []string
	frames := memory.NewQueue[envelope.Frame](memory.DefaultConfig())
	set := pending.New()
	svc, err := New(frames, set, WithNotice(func(text string) { notices = append(notices, text) }))
	assert.NoError(t, err)

	assert.Equal(t, StateConnecting, svc.State())

	svc.TransportUp()
	assert.Equal(t, StateLive, svc.State())
	assert.NoError(t, svc.LastError())

	transportErr := errors.New("stream reset")
	svc.TransportDown(transportErr)
	assert.Equal(t, StateReconnecting, svc.State())
	assert.ErrorIs(t, svc.LastError(), transportErr)
	assert.Len(t, notices, 1)

	svc.TransportUp()
	assert.Equal(t, StateLive, svc.State())
	assert.NoError(t, svc.LastError())
}

func TestTransportDownLeavesSetUntouched(t *testing.T) {
	svc, frames, set := newSubscriber(t)
	svc.Start(context.Background())
	defer svc.Shutdown()

	publishAndSettle(t, frames, set,
		`{"type":"approval_required","payload":{"hand_id":"h1","action_id":"a1"}}`, 1)

	svc.TransportDown(errors.New("gone"))
	assert.Equal(t, 1, set.Len(), "staleness is preferred over data loss")
}

func TestShutdownStopsLoop(t *testing.T) {
	svc, frames, set := newSubscriber(t)
	svc.Start(context.Background())

	svc.Shutdown()
	assert.Equal(t, StateStopped, svc.State())

	// Frames published after teardown are no longer applied.
	frame := envelope.NewFrame("", `{"type":"approval_required","payload":{"hand_id":"h9","action_id":"a9"}}`)
	assert.NoError(t, frames.Publish(context.Background(), &frame))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, set.Len())

	// State callbacks after teardown are ignored.
	svc.TransportUp()
	assert.Equal(t, StateStopped, svc.State())
}
