package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/handrail/handrail/model/approval"
	"github.com/handrail/handrail/service/pending"
)

type fakeEndpoint struct {
	mu    sync.Mutex
	calls []approval.Key
	fail  map[approval.Key]error
	delay time.Duration

	// started receives one token per call, before any delay; guard tests use
	// it to know a concurrent dispatch is in flight.
	started chan struct{}
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		fail:    make(map[approval.Key]error),
		started: make(chan struct{}, 16),
	}
}

func (e *fakeEndpoint) Submit(_ context.Context, item *approval.Item, _ approval.Verb) error {
	select {
	case e.started <- struct{}{}:
	default:
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, item.Key())
	return e.fail[item.Key()]
}

func (e *fakeEndpoint) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func seedSet(t *testing.T, n int) *pending.Service {
	t.Helper()
	set := pending.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		item := &approval.Item{
			AgentID:   fmt.Sprintf("h%d", i),
			ActionID:  fmt.Sprintf("a%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		assert.NoError(t, set.Upsert(context.Background(), item))
	}
	return set
}

func TestSubmitSuccessRemovesItem(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 2)
	endpoint := newFakeEndpoint()
	svc, err := New(set, endpoint)
	assert.NoError(t, err)

	item := set.Snapshot(ctx)[0]
	assert.NoError(t, svc.Submit(ctx, item, approval.VerbApprove))
	assert.Equal(t, 1, set.Len())

	// The stream's resolved notification for the same key converges
	// harmlessly with the local removal.
	assert.False(t, set.Remove(ctx, item.Key()))
}

func TestSubmitFailureRetainsItem(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 1)
	endpoint := newFakeEndpoint()
	item := set.Snapshot(ctx)[0]
	endpoint.fail[item.Key()] = errors.New("backend unavailable")

	svc, err := New(set, endpoint)
	assert.NoError(t, err)

	err = svc.Submit(ctx, item, approval.VerbReject)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reject", "error names the attempted verb")
	assert.Equal(t, 1, set.Len(), "failed decisions retain the item")
	assert.Equal(t, 1, endpoint.callCount(), "no automatic retry")
}

func TestSubmitInvalidInput(t *testing.T) {
	set := seedSet(t, 1)
	svc, err := New(set, newFakeEndpoint())
	assert.NoError(t, err)

	item := set.Snapshot(context.Background())[0]
	assert.ErrorIs(t, svc.Submit(context.Background(), item, approval.Verb("defer")), ErrInvalidVerb)
	assert.Error(t, svc.Submit(context.Background(), nil, approval.VerbApprove))
}

func TestSubmitBusyKeyGuard(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 1)
	endpoint := newFakeEndpoint()
	endpoint.delay = 100 * time.Millisecond
	svc, err := New(set, endpoint)
	assert.NoError(t, err)

	item := set.Snapshot(ctx)[0]
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Submit(ctx, item, approval.VerbApprove))
	}()

	<-endpoint.started
	assert.ErrorIs(t, svc.Submit(ctx, item, approval.VerbApprove), ErrBusy,
		"second concurrent submit for the same key is rejected")
	wg.Wait()
}

func TestSubmitAllPartialFailure(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 5)
	endpoint := newFakeEndpoint()
	endpoint.fail[approval.NewKey("h1", "a1")] = errors.New("boom")
	endpoint.fail[approval.NewKey("h3", "a3")] = errors.New("boom")

	svc, err := New(set, endpoint)
	assert.NoError(t, err)

	result, err := svc.SubmitAll(ctx, approval.VerbApprove)
	assert.Error(t, err)
	assert.Equal(t, 5, result.Submitted)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 2, set.Len(), "exactly the succeeded subset is removed")

	remaining := set.Snapshot(ctx)
	keys := []approval.Key{remaining[0].Key(), remaining[1].Key()}
	assert.Contains(t, keys, approval.NewKey("h1", "a1"))
	assert.Contains(t, keys, approval.NewKey("h3", "a3"))
}

func TestSubmitAllAllSucceed(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 3)
	svc, err := New(set, newFakeEndpoint())
	assert.NoError(t, err)

	result, err := svc.SubmitAll(ctx, approval.VerbReject)
	assert.NoError(t, err)
	assert.Equal(t, &BulkResult{Submitted: 3, Succeeded: 3}, result)
	assert.Equal(t, 0, set.Len())
}

func TestBulkInFlightGuard(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 3)
	endpoint := newFakeEndpoint()
	endpoint.delay = 100 * time.Millisecond
	svc, err := New(set, endpoint)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.SubmitAll(ctx, approval.VerbApprove)
	}()

	<-endpoint.started
	_, err = svc.SubmitAll(ctx, approval.VerbApprove)
	assert.ErrorIs(t, err, ErrBulkInFlight)
	item := set.Snapshot(ctx)[0]
	assert.ErrorIs(t, svc.Submit(ctx, item, approval.VerbApprove), ErrBulkInFlight)
	wg.Wait()

	// Once the bulk has drained, the flag is cleared.
	_, err = svc.SubmitAll(ctx, approval.VerbApprove)
	assert.NoError(t, err)
}

func TestBulkNeverRedispatchesResolvedItems(t *testing.T) {
	ctx := context.Background()
	// An individual decision racing a bulk one must produce exactly one
	// endpoint call for the shared key, whichever side wins: either the single
	// completes and the bulk snapshot no longer carries the item, or the bulk
	// flag is up and the single is turned away.
	for i := 0; i < 5; i++ {
		set := seedSet(t, 1)
		endpoint := newFakeEndpoint()
		endpoint.delay = 50 * time.Millisecond
		svc, err := New(set, endpoint)
		assert.NoError(t, err)

		item := set.Snapshot(ctx)[0]
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Submit(ctx, item, approval.VerbApprove)
		}()
		_, _ = svc.SubmitAll(ctx, approval.VerbApprove)
		wg.Wait()

		assert.Equal(t, 1, endpoint.callCount(), "iteration %d", i)
		assert.Equal(t, 0, set.Len(), "iteration %d", i)
	}
}

func TestSubmitAllSkipsBusyKeys(t *testing.T) {
	ctx := context.Background()
	set := seedSet(t, 2)
	endpoint := newFakeEndpoint()
	endpoint.delay = 80 * time.Millisecond
	svc, err := New(set, endpoint)
	assert.NoError(t, err)

	item := set.Snapshot(ctx)[0]
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Submit(ctx, item, approval.VerbApprove))
	}()
	<-endpoint.started

	result, err := svc.SubmitAll(ctx, approval.VerbApprove)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Submitted, "the key with an outstanding decision is skipped")
	wg.Wait()
	assert.Equal(t, 0, set.Len())
}
