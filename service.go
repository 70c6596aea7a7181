package handrail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/handrail/handrail/policy"
	"github.com/handrail/handrail/service/audit"
	"github.com/handrail/handrail/service/dispatch"
	"github.com/handrail/handrail/service/envelope"
	"github.com/handrail/handrail/service/event"
	"github.com/handrail/handrail/service/messaging"
	"github.com/handrail/handrail/service/messaging/memory"
	"github.com/handrail/handrail/service/pending"
	"github.com/handrail/handrail/service/pending/slot"
	"github.com/handrail/handrail/service/subscriber"
	"github.com/handrail/handrail/tracing"
)

// Service is the assembled reconciliation engine: one frame queue, one pending
// set, one subscriber and one dispatcher, wired per Config.
type Service struct {
	config   *Config
	frames   messaging.Queue[envelope.Frame]
	pending  *pending.Service
	endpoint dispatch.Endpoint
	events   *event.Service
	audit    *audit.Store
	policy   *policy.Policy
	notice   subscriber.NoticeFunc

	subscriber *subscriber.Service
	dispatcher *dispatch.Service
	stopAuto   func()
}

// New assembles an engine from the supplied options, filling every unset
// collaborator with its default.
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if err := ret.ensureBaseSetup(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.events == nil {
		s.events = event.New()
	}
	if s.frames == nil {
		queueConfig := memory.DefaultConfig()
		if s.config.QueueBuffer > 0 {
			queueConfig.QueueBuffer = s.config.QueueBuffer
		}
		s.frames = memory.NewQueue[envelope.Frame](queueConfig)
	}
	if s.pending == nil {
		options := []pending.Option{
			pending.WithPublisher(event.PublisherOf[pending.Change](s.events)),
		}
		if s.config.Slot.BasePath != "" {
			persistence, err := slot.New(s.config.Slot.BasePath, s.config.Slot.Name)
			if err != nil {
				return err
			}
			options = append(options, pending.WithSlot(persistence))
		}
		s.pending = pending.New(options...)
	}
	if s.endpoint == nil {
		if s.config.Endpoint.BaseURL == "" {
			return fmt.Errorf("decision endpoint is required: set endpoint.baseURL or use WithEndpoint")
		}
		s.endpoint = dispatch.NewHTTPEndpoint(s.config.Endpoint.BaseURL, time.Duration(s.config.Endpoint.Timeout))
	}
	if s.audit == nil && s.config.AuditDSN != "" {
		store, err := audit.NewStore(s.config.AuditDSN)
		if err != nil {
			return err
		}
		s.audit = store
	}
	if s.policy == nil && s.config.Policy != nil {
		s.policy = policy.FromConfig(s.config.Policy)
	}

	var err error
	if s.subscriber, err = subscriber.New(s.frames, s.pending, subscriber.WithNotice(s.notice)); err != nil {
		return err
	}
	s.dispatcher, err = dispatch.New(s.pending, s.endpoint,
		dispatch.WithConfig(dispatch.Config{Workers: s.config.Workers}),
		dispatch.WithAudit(s.audit),
		dispatch.WithPublisher(event.PublisherOf[dispatch.Outcome](s.events)),
	)
	return err
}

// Start hydrates the pending set from the slot and launches the subscription
// loop plus, when a policy is configured, the auto-decision sweep.
func (s *Service) Start(ctx context.Context) {
	hydrateCtx, span := tracing.StartSpan(ctx, "engine.Hydrate", "INTERNAL")
	count := s.pending.Hydrate(hydrateCtx)
	span.WithAttributes(map[string]string{"pending.hydrated": strconv.Itoa(count)})
	tracing.EndSpan(span, nil)

	s.subscriber.Start(ctx)
	s.subscriber.TransportUp()

	if s.policy != nil && s.stopAuto == nil {
		s.stopAuto = dispatch.AutoDecider(ctx, s.dispatcher,
			dispatch.PolicyDecider(s.policy), time.Duration(s.config.PolicyInterval))
	}
}

// Shutdown stops the loops and releases held resources. The pending set is
// left intact; its persisted copy survives for the next session's hydration.
func (s *Service) Shutdown() {
	if s.stopAuto != nil {
		s.stopAuto()
		s.stopAuto = nil
	}
	s.subscriber.Shutdown()
	s.events.Shutdown()
	if s.audit != nil {
		_ = s.audit.Close()
	}
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Pending returns the pending approval set.
func (s *Service) Pending() *pending.Service {
	return s.pending
}

// Dispatcher returns the decision dispatch service.
func (s *Service) Dispatcher() *dispatch.Service {
	return s.dispatcher
}

// Subscriber returns the stream subscription controller.
func (s *Service) Subscriber() *subscriber.Service {
	return s.subscriber
}

// Events returns the engine event service.
func (s *Service) Events() *event.Service {
	return s.events
}

// FrameQueue returns the queue the transport publishes raw frames into.
func (s *Service) FrameQueue() messaging.Queue[envelope.Frame] {
	return s.frames
}

// Audit returns the decision audit trail, or nil when disabled.
func (s *Service) Audit() *audit.Store {
	return s.audit
}
