package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/handrail/handrail/service/envelope"
	"github.com/handrail/handrail/service/messaging"
	"github.com/handrail/handrail/service/pending"
)

// State of the subscription. Terminal only on explicit teardown.
type State string

const (
	StateConnecting   State = "connecting"
	StateLive         State = "live"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// NoticeFunc surfaces a user-visible, non-blocking notice (e.g. a
// "reconnecting" indicator). It must not block.
type NoticeFunc func(text string)

// Service consumes frames from the transport-fed queue and reconciles them
// into the pending set.
type Service struct {
	frames  messaging.Queue[envelope.Frame]
	pending *pending.Service
	notice  NoticeFunc

	mu      sync.Mutex
	state   State
	lastErr error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customises the subscriber.
type Option func(*Service)

// WithNotice installs the operator notice hook.
func WithNotice(notice NoticeFunc) Option {
	return func(s *Service) { s.notice = notice }
}

// New creates a subscriber over the given frame queue and pending set.
func New(frames messaging.Queue[envelope.Frame], set *pending.Service, options ...Option) (*Service, error) {
	if frames == nil {
		return nil, fmt.Errorf("frame queue is required")
	}
	if set == nil {
		return nil, fmt.Errorf("pending set is required")
	}
	s := &Service{
		frames:  frames,
		pending: set,
		state:   StateConnecting,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Start launches the consume loop. The loop runs until Shutdown or ctx
// cancellation; neither clears the pending set, whose lifetime is owned by
// the persistence slot.
func (s *Service) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(loopCtx)
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		msg, err := s.frames.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			// Transient queue error; back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		s.apply(ctx, *msg.T())
		// Malformed frames are expected noise, so the message is always
		// acknowledged; dropping is the handling, not a failure.
		if err := msg.Ack(); err != nil {
			log.Printf("subscriber: ack failed: %v", err)
		}
	}
}

// apply routes one parsed instruction into the pending set.
func (s *Service) apply(ctx context.Context, frame envelope.Frame) {
	instruction := envelope.Parse(frame)
	switch instruction.Kind {
	case envelope.KindUpsert:
		if err := s.pending.Upsert(ctx, instruction.Item); err != nil {
			log.Printf("subscriber: dropped %s: %v", instruction.Key, err)
		}
	case envelope.KindRemove:
		s.pending.Remove(ctx, instruction.Key)
	case envelope.KindIgnore:
		// Silent by contract.
	}
}

// TransportUp records that the transport (re)established its connection.
func (s *Service) TransportUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = StateLive
	s.lastErr = nil
}

// TransportDown records a transport error. The pending set is deliberately
// left untouched: staleness is preferred over data loss.
func (s *Service) TransportDown(err error) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateReconnecting
	s.lastErr = err
	notice := s.notice
	s.mu.Unlock()

	if notice != nil {
		notice("connection lost, reconnecting - approvals may be stale")
	}
}

// State returns the current subscription state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent transport error, if the subscription is
// currently degraded.
func (s *Service) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Shutdown detaches from the queue and stops the loop. It does not clear the
// pending set.
func (s *Service) Shutdown() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		s.cancel = nil
	}
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}
