package pending

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/handrail/handrail/internal/clock"
	"github.com/handrail/handrail/model/approval"
	"github.com/handrail/handrail/service/dao"
	"github.com/handrail/handrail/service/dao/criteria"
	"github.com/handrail/handrail/service/dao/store"
	"github.com/handrail/handrail/service/event"
	"github.com/handrail/handrail/service/pending/slot"
)

// Service is the pending approval set. Items are unique per composite key;
// snapshots are ordered by timestamp descending. All mutations are serialised
// behind one mutex and are individually idempotent, so the two removal paths
// (resolved notifications and confirmed decisions) converge harmlessly.
type Service struct {
	store     *store.MemoryStore[approval.Key, approval.Item]
	slot      *slot.Slot
	publisher *event.Publisher[Change]

	mu sync.Mutex
}

// Option customises the pending set.
type Option func(*Service)

// WithSlot attaches the persistence slot; without it the set is
// in-memory-only.
func WithSlot(s *slot.Slot) Option {
	return func(svc *Service) { svc.slot = s }
}

// WithPublisher attaches the lifecycle event publisher.
func WithPublisher(p *event.Publisher[Change]) Option {
	return func(svc *Service) { svc.publisher = p }
}

func itemKey(i *approval.Item) approval.Key { return i.Key() }

// New creates an empty pending set.
func New(options ...Option) *Service {
	ret := &Service{
		store: store.NewMemoryStore[approval.Key, approval.Item](itemKey),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Upsert replaces-or-inserts by composite key. A later required-notification
// for an existing key replaces the stored field values; it never duplicates.
func (s *Service) Upsert(ctx context.Context, item *approval.Item) error {
	if item == nil {
		return dao.ErrNilEntity
	}
	item.ApplyDefaults()
	if !item.IsValid() {
		return dao.ErrInvalidID
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = clock.Now()
	}
	s.mu.Lock()
	_ = s.store.Save(ctx, item)
	s.persistLocked(ctx)
	s.mu.Unlock()

	// Observers get a copy; the stored item must never be reachable through
	// an event payload.
	published := *item
	s.publish(ctx, Change{Kind: ChangeUpserted, Key: item.Key(), Item: &published})
	return nil
}

// Remove deletes the item with the given key and reports whether it was
// present. Removing an absent key is a no-op, never an error: the resolved
// notification and the local decision confirmation may both try.
func (s *Service) Remove(ctx context.Context, key approval.Key) bool {
	s.mu.Lock()
	if _, err := s.store.Load(ctx, key); errors.Is(err, dao.ErrNotFound) {
		s.mu.Unlock()
		return false
	}
	_ = s.store.Delete(ctx, key)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(ctx, Change{Kind: ChangeRemoved, Key: key})
	return true
}

// RemoveAll deletes every listed key in a single batched update (one re-sort,
// one persist) and returns how many were present. Used by the bulk decision
// path to avoid a persist-thrash per item.
func (s *Service) RemoveAll(ctx context.Context, keys []approval.Key) int {
	var removed []approval.Key
	s.mu.Lock()
	for _, key := range keys {
		if _, err := s.store.Load(ctx, key); err == nil {
			_ = s.store.Delete(ctx, key)
			removed = append(removed, key)
		}
	}
	if len(removed) > 0 {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	for _, key := range removed {
		s.publish(ctx, Change{Kind: ChangeRemoved, Key: key})
	}
	return len(removed)
}

// Snapshot returns a copy of the set ordered by timestamp descending,
// optionally filtered (dao.NewParameter("Risk", ...)).
func (s *Service) Snapshot(ctx context.Context, parameters ...*dao.Parameter) []*approval.Item {
	all, _ := s.store.List(ctx)
	items := make([]*approval.Item, 0, len(all))
	for _, item := range all {
		if !criteria.FilterByRisk(string(item.Risk), parameters) {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sortItems(items)
	return items
}

// Len returns the current set size.
func (s *Service) Len() int {
	return s.store.Len()
}

// Hydrate reads the persisted blob and replaces the in-memory set. A missing
// or unreadable slot yields an empty set; entries failing the minimal shape
// validator are dropped individually rather than failing the whole read.
// Returns the number of hydrated items.
func (s *Service) Hydrate(ctx context.Context) int {
	if s.slot == nil {
		return 0
	}
	data, exists, err := s.slot.Read(ctx)
	if err != nil {
		log.Printf("pending: hydrate failed, starting empty: %v", err)
		data, exists = nil, false
	}
	var items []*approval.Item
	if exists {
		var decoded []approval.Item
		if err := json.Unmarshal(data, &decoded); err != nil {
			log.Printf("pending: persisted set unreadable, starting empty: %v", err)
		} else {
			for i := range decoded {
				item := decoded[i]
				if !item.IsValid() {
					continue
				}
				item.ApplyDefaults()
				items = append(items, &item)
			}
		}
	}
	s.mu.Lock()
	_ = s.store.Reset(ctx, items)
	s.mu.Unlock()

	s.publish(ctx, Change{Kind: ChangeHydrated})
	return len(items)
}

// persistLocked serialises the ordered set into the slot. Failures are
// swallowed: the session degrades to in-memory-only rather than losing the
// live set. Caller holds s.mu.
func (s *Service) persistLocked(ctx context.Context) {
	if s.slot == nil {
		return
	}
	all, _ := s.store.List(ctx)
	items := make([]*approval.Item, len(all))
	copy(items, all)
	sortItems(items)
	data, err := json.Marshal(items)
	if err != nil {
		log.Printf("pending: persist skipped: %v", err)
		return
	}
	if err := s.slot.Write(ctx, data); err != nil {
		log.Printf("pending: persist failed: %v", err)
	}
}

func (s *Service) publish(ctx context.Context, change Change) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, event.NewEvent(&event.Context{
		AgentID:   change.Key.AgentID,
		ActionID:  change.Key.ActionID,
		EventType: string(change.Kind),
	}, change))
}

// sortItems orders newest-first; ties break on the composite key for
// deterministic iteration.
func sortItems(items []*approval.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].Key().String() < items[j].Key().String()
	})
}
