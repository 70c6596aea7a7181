package dispatch

import (
	"context"
	"time"

	"github.com/handrail/handrail/model/approval"
	"github.com/handrail/handrail/policy"
)

// DecisionFunc decides what to do with a pending item.
// Return (verb, true) to dispatch that verb automatically,
// (_, false) to leave the item for the operator.
type DecisionFunc func(item *approval.Item) (approval.Verb, bool)

// PolicyDecider adapts a policy into a DecisionFunc.
func PolicyDecider(p *policy.Policy) DecisionFunc {
	return func(item *approval.Item) (approval.Verb, bool) {
		return p.Decide(item.AgentID)
	}
}

// AutoDecider starts a goroutine that periodically applies fn to every
// pending item and dispatches the returned verdicts. It returns stop() -
// call it (or cancel ctx) to exit. Busy-key and bulk guards apply as usual,
// so an auto decision never races a manual one for the same key.
func AutoDecider(ctx context.Context, svc *Service, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				for _, item := range svc.pending.Snapshot(ctx) {
					verb, ok := fn(item)
					if !ok {
						continue
					}
					_ = svc.Submit(ctx, item, verb)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves every pending item.
func AutoApprove(ctx context.Context, svc *Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*approval.Item) (approval.Verb, bool) { return approval.VerbApprove, true }, interval)
}

// AutoReject automatically rejects every pending item.
func AutoReject(ctx context.Context, svc *Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*approval.Item) (approval.Verb, bool) { return approval.VerbReject, true }, interval)
}
