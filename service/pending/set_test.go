package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/handrail/handrail/model/approval"
	"github.com/handrail/handrail/service/dao"
	"github.com/handrail/handrail/service/event"
	"github.com/handrail/handrail/service/messaging/memory"
	"github.com/handrail/handrail/service/pending/slot"
)

func newItem(agentID, actionID string, ts time.Time) *approval.Item {
	return &approval.Item{
		AgentID:   agentID,
		ActionID:  actionID,
		Risk:      approval.RiskLow,
		Timestamp: ts,
	}
}

func TestUpsertReplacesNotDuplicates(t *testing.T) {
	ctx := context.Background()
	set := New()

	first := newItem("h1", "a1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	first.Description = "Delete files"
	assert.NoError(t, set.Upsert(ctx, first))

	second := newItem("h1", "a1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	second.Description = "Delete more files"
	assert.NoError(t, set.Upsert(ctx, second))

	snapshot := set.Snapshot(ctx)
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "Delete more files", snapshot[0].Description)
	assert.Equal(t, second.Timestamp, snapshot[0].Timestamp)
}

func TestUpsertEventPayloadIsIsolated(t *testing.T) {
	ctx := context.Background()
	publisher := event.NewPublisher[Change](memory.NewQueue[event.Event[Change]](memory.DefaultConfig()))
	set := New(WithPublisher(publisher))

	item := newItem("h1", "a1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	item.Description = "Delete files"
	assert.NoError(t, set.Upsert(ctx, item))

	received, err := publisher.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, ChangeUpserted, received.Data.Kind)
	assert.Equal(t, "Delete files", received.Data.Item.Description)

	// Mutating the event payload must not reach the stored item.
	received.Data.Item.Description = "corrupted"
	assert.Equal(t, "Delete files", set.Snapshot(ctx)[0].Description)
}

func TestRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	set := New()
	assert.NoError(t, set.Upsert(ctx, newItem("h1", "a1", time.Now())))

	assert.True(t, set.Remove(ctx, approval.NewKey("h1", "a1")))
	assert.False(t, set.Remove(ctx, approval.NewKey("h1", "a1")), "second remove is a no-op")
	assert.False(t, set.Remove(ctx, approval.NewKey("absent", "key")))
	assert.Equal(t, 0, set.Len())
}

func TestSnapshotOrdering(t *testing.T) {
	ctx := context.Background()
	set := New()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	assert.NoError(t, set.Upsert(ctx, newItem("h1", "a1", t1)))
	assert.NoError(t, set.Upsert(ctx, newItem("h2", "a2", t2)))

	snapshot := set.Snapshot(ctx)
	assert.Len(t, snapshot, 2)
	assert.Equal(t, approval.NewKey("h2", "a2"), snapshot[0].Key())
	assert.Equal(t, approval.NewKey("h1", "a1"), snapshot[1].Key())
}

func TestSnapshotRiskFilter(t *testing.T) {
	ctx := context.Background()
	set := New()

	low := newItem("h1", "a1", time.Now())
	high := newItem("h2", "a2", time.Now())
	high.Risk = approval.RiskHigh
	assert.NoError(t, set.Upsert(ctx, low))
	assert.NoError(t, set.Upsert(ctx, high))

	filtered := set.Snapshot(ctx, dao.NewParameter("Risk", string(approval.RiskHigh)))
	assert.Len(t, filtered, 1)
	assert.Equal(t, approval.NewKey("h2", "a2"), filtered[0].Key())
}

func TestRemoveAllBatch(t *testing.T) {
	ctx := context.Background()
	set := New()
	now := time.Now()
	assert.NoError(t, set.Upsert(ctx, newItem("h1", "a1", now)))
	assert.NoError(t, set.Upsert(ctx, newItem("h2", "a2", now)))
	assert.NoError(t, set.Upsert(ctx, newItem("h3", "a3", now)))

	removed := set.RemoveAll(ctx, []approval.Key{
		approval.NewKey("h1", "a1"),
		approval.NewKey("h3", "a3"),
		approval.NewKey("absent", "key"),
	})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, set.Len())
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	aSlot, err := slot.New(t.TempDir(), "approvals")
	assert.NoError(t, err)

	set := New(WithSlot(aSlot))
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := newItem("h1", "a1", t1)
	first.Tools = []string{"bash"}
	assert.NoError(t, set.Upsert(ctx, first))
	assert.NoError(t, set.Upsert(ctx, newItem("h2", "a2", t1.Add(time.Minute))))

	rehydrated := New(WithSlot(aSlot))
	assert.Equal(t, 2, rehydrated.Hydrate(ctx))
	assert.Equal(t, set.Snapshot(ctx), rehydrated.Snapshot(ctx))
}

func TestHydrateDropsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	aSlot, err := slot.New(t.TempDir(), "approvals")
	assert.NoError(t, err)

	blob := `[
		{"agentId":"h1","actionId":"a1","riskLevel":"high","timestamp":"2024-01-01T00:00:00Z"},
		{"agentId":"","actionId":"a2"},
		{"actionId":"a3"}
	]`
	assert.NoError(t, aSlot.Write(ctx, []byte(blob)))

	set := New(WithSlot(aSlot))
	assert.Equal(t, 1, set.Hydrate(ctx))
	snapshot := set.Snapshot(ctx)
	assert.Len(t, snapshot, 1)
	assert.Equal(t, approval.NewKey("h1", "a1"), snapshot[0].Key())
	assert.Equal(t, "Hand h1", snapshot[0].AgentName, "hydrated items get display defaults")
}

func TestHydrateCorruptSlot(t *testing.T) {
	ctx := context.Background()
	aSlot, err := slot.New(t.TempDir(), "approvals")
	assert.NoError(t, err)
	assert.NoError(t, aSlot.Write(ctx, []byte("not json")))

	set := New(WithSlot(aSlot))
	assert.Equal(t, 0, set.Hydrate(ctx))
	assert.Equal(t, 0, set.Len())
}

func TestHydrateWithoutSlot(t *testing.T) {
	set := New()
	assert.Equal(t, 0, set.Hydrate(context.Background()))
}
