package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/handrail/handrail/model/approval"
	"github.com/handrail/handrail/service/audit"
	"github.com/handrail/handrail/service/event"
	"github.com/handrail/handrail/service/pending"
	"github.com/handrail/handrail/tracing"
)

// Config represents dispatch service configuration.
type Config struct {
	// Workers bounds the fan-out of a bulk dispatch.
	Workers int
}

// DefaultConfig returns the default dispatch configuration.
func DefaultConfig() Config {
	return Config{Workers: 5}
}

// Outcome is the event payload published after every dispatched decision.
type Outcome struct {
	Key       approval.Key  `json:"key"`
	Verb      approval.Verb `json:"verb"`
	Bulk      bool          `json:"bulk"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`
}

// BulkResult summarises a bulk dispatch.
type BulkResult struct {
	Submitted int
	Succeeded int
	Failed    int
}

// Service dispatches decisions for items of one pending set.
type Service struct {
	config    Config
	pending   *pending.Service
	endpoint  Endpoint
	audit     *audit.Store
	publisher *event.Publisher[Outcome]

	mu           sync.Mutex
	busy         map[approval.Key]struct{}
	bulkInFlight bool
}

// Option customises the dispatch service.
type Option func(*Service)

// WithConfig overrides the default configuration.
func WithConfig(config Config) Option {
	return func(s *Service) { s.config = config }
}

// WithAudit attaches the decision audit trail.
func WithAudit(store *audit.Store) Option {
	return func(s *Service) { s.audit = store }
}

// WithPublisher attaches the outcome event publisher.
func WithPublisher(p *event.Publisher[Outcome]) Option {
	return func(s *Service) { s.publisher = p }
}

// New creates a dispatch service over the given pending set and endpoint.
func New(set *pending.Service, endpoint Endpoint, options ...Option) (*Service, error) {
	if set == nil {
		return nil, fmt.Errorf("pending set is required")
	}
	if endpoint == nil {
		return nil, fmt.Errorf("decision endpoint is required")
	}
	s := &Service{
		config:   DefaultConfig(),
		pending:  set,
		endpoint: endpoint,
		busy:     make(map[approval.Key]struct{}),
	}
	for _, option := range options {
		option(s)
	}
	if s.config.Workers <= 0 {
		s.config.Workers = DefaultConfig().Workers
	}
	return s, nil
}

// Submit dispatches one decision. On success the item is removed from the
// pending set locally, converging with any resolved notification for the same
// key. On failure the item is retained and a verb-naming error is returned;
// there is no automatic retry.
func (s *Service) Submit(ctx context.Context, item *approval.Item, verb approval.Verb) (err error) {
	if item == nil || !item.IsValid() {
		return fmt.Errorf("dispatch: invalid approval item")
	}
	if !verb.IsValid() {
		return ErrInvalidVerb
	}
	key := item.Key()
	if err := s.acquire(key); err != nil {
		return err
	}
	defer s.release(key)

	ctx, span := tracing.StartSpan(ctx, "dispatch.Submit", "CLIENT")
	span.WithAttributes(map[string]string{
		"approval.agent_id":  key.AgentID,
		"approval.action_id": key.ActionID,
		"decision.verb":      string(verb),
	})
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.dispatch(ctx, item, verb, false); err != nil {
		return err
	}
	s.pending.Remove(ctx, key)
	return nil
}

// SubmitAll dispatches the given verb for every item currently pending. All
// submissions are joined regardless of individual failure; the succeeded
// subset is removed in one batched update. The returned result carries the
// aggregate counts; the error (when any failed) wraps every per-item failure.
func (s *Service) SubmitAll(ctx context.Context, verb approval.Verb) (result *BulkResult, err error) {
	if !verb.IsValid() {
		return nil, ErrInvalidVerb
	}
	items, err := s.acquireBulk(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseBulk(items)

	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("dispatch.SubmitAll %s", verb), "CLIENT")
	span.WithAttributes(map[string]string{"decision.verb": string(verb)})
	defer func() { tracing.EndSpan(span, err) }()

	outcomes := make([]error, len(items))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.config.Workers)
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.dispatch(ctx, items[i], verb, true)
		}(i)
	}
	wg.Wait()

	result = &BulkResult{Submitted: len(items)}
	var succeeded []approval.Key
	var failures []error
	for i, outcome := range outcomes {
		if outcome == nil {
			succeeded = append(succeeded, items[i].Key())
			continue
		}
		failures = append(failures, outcome)
	}
	result.Succeeded = len(succeeded)
	result.Failed = len(failures)

	s.pending.RemoveAll(ctx, succeeded)

	if result.Failed > 0 {
		err = fmt.Errorf("failed to %s %d of %d approvals: %w",
			verb, result.Failed, result.Submitted, errors.Join(failures...))
		return result, err
	}
	return result, nil
}

// dispatch performs the endpoint call plus audit and event bookkeeping. It
// does not touch the pending set; the callers own removal so that the bulk
// path can batch it.
func (s *Service) dispatch(ctx context.Context, item *approval.Item, verb approval.Verb, bulk bool) error {
	key := item.Key()
	started := time.Now()
	err := s.endpoint.Submit(ctx, item, verb)
	latency := time.Since(started).Milliseconds()

	s.record(ctx, audit.Record{
		AgentID:   key.AgentID,
		ActionID:  key.ActionID,
		Verb:      verb,
		Bulk:      bulk,
		Succeeded: err == nil,
		Error:     errText(err),
		LatencyMs: latency,
	})
	s.publish(ctx, Outcome{
		Key:       key,
		Verb:      verb,
		Bulk:      bulk,
		Succeeded: err == nil,
		Error:     errText(err),
	})

	if err != nil {
		return fmt.Errorf("failed to %s approval %s: %w", verb, key, err)
	}
	return nil
}

func (s *Service) acquire(key approval.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkInFlight {
		return ErrBulkInFlight
	}
	if _, outstanding := s.busy[key]; outstanding {
		return ErrBusy
	}
	s.busy[key] = struct{}{}
	return nil
}

func (s *Service) release(key approval.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, key)
}

// acquireBulk raises the bulk flag, then snapshots the set and marks every
// reachable key busy. The flag goes up first so no individual decision can
// complete between the snapshot and the busy marking and leave its
// already-removed item in the batch. Items with an outstanding individual
// decision are skipped rather than raced.
func (s *Service) acquireBulk(ctx context.Context) ([]*approval.Item, error) {
	s.mu.Lock()
	if s.bulkInFlight {
		s.mu.Unlock()
		return nil, ErrBulkInFlight
	}
	s.bulkInFlight = true
	s.mu.Unlock()

	snapshot := s.pending.Snapshot(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*approval.Item, 0, len(snapshot))
	for _, item := range snapshot {
		if _, outstanding := s.busy[item.Key()]; outstanding {
			continue
		}
		s.busy[item.Key()] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) releaseBulk(items []*approval.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		delete(s.busy, item.Key())
	}
	s.bulkInFlight = false
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		log.Printf("dispatch: audit write failed: %v", err)
	}
}

func (s *Service) publish(ctx context.Context, outcome Outcome) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, event.NewEvent(&event.Context{
		AgentID:   outcome.Key.AgentID,
		ActionID:  outcome.Key.ActionID,
		EventType: "decision_recorded",
	}, outcome))
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
