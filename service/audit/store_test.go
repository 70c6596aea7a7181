package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/handrail/handrail/model/approval"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	assert.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Append(ctx, Record{
		AgentID:   "h1",
		ActionID:  "a1",
		Verb:      approval.VerbApprove,
		Succeeded: true,
		LatencyMs: 12,
	}))
	assert.NoError(t, store.Append(ctx, Record{
		AgentID:   "h2",
		ActionID:  "a2",
		Verb:      approval.VerbReject,
		Bulk:      true,
		Succeeded: false,
		Error:     "backend unavailable",
	}))

	records, err := store.List(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	}

	failed := records[0]
	if failed.Succeeded {
		failed = records[1]
	}
	assert.Equal(t, approval.VerbReject, failed.Verb)
	assert.True(t, failed.Bulk)
	assert.Equal(t, "backend unavailable", failed.Error)
}

func TestStoreMissingDSN(t *testing.T) {
	_, err := NewStore("  ")
	assert.Error(t, err)
}
