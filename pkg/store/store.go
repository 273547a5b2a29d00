package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/value"
)

// Observer receives store events. Implementations must not block and must
// not call back into the store.
type Observer interface {
	SlotCreated(name string)
	Wrote(name string, changed bool, err error)
	Notified(name string, listeners int)
	Subscribed(name string)
	Unsubscribed(name string)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithPersistence attaches a persistence adapter. Initialize enables it with
// the configured mode.
func WithPersistence(a *persist.Adapter) Option {
	return func(s *Store) { s.persist = a }
}

// WithStrictNames makes writes and subscriptions to names that were never
// initialized or restored fail with *UnknownNameError instead of creating
// the slot.
func WithStrictNames() Option {
	return func(s *Store) { s.strict = true }
}

// slot is a single named value plus its subscribers.
type slot struct {
	value value.Value
	subs  map[Token]Listener
	byID  map[uint64]Token
	order []Token
}

func newSlot(v value.Value) *slot {
	return &slot{
		value: v,
		subs:  make(map[Token]Listener),
		byID:  make(map[uint64]Token),
	}
}

// listeners returns the subscribers in registration order.
func (sl *slot) listeners() []Listener {
	out := make([]Listener, 0, len(sl.subs))
	for _, tok := range sl.order {
		if l, ok := sl.subs[tok]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (sl *slot) remove(tok Token) bool {
	l, ok := sl.subs[tok]
	if !ok {
		return false
	}
	delete(sl.subs, tok)
	delete(sl.byID, l.ID())
	for i, t := range sl.order {
		if t == tok {
			sl.order = append(sl.order[:i], sl.order[i+1:]...)
			break
		}
	}
	return true
}

// Store is a registry of named slots. The zero value is not usable; create
// stores with New. Several independent stores may coexist.
//
// Listeners are notified synchronously on the writing goroutine with the
// store unlocked, so a listener may read and write the store. A listener
// that writes recurses before the outer write returns.
type Store struct {
	logger   *slog.Logger
	observer Observer
	persist  *persist.Adapter
	strict   bool

	mu          sync.Mutex
	slots       map[string]*slot
	tokens      map[Token]*slot
	nextToken   Token
	initialized bool
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "store")
	s.slots = make(map[string]*slot)
	s.tokens = make(map[Token]*slot)
	return s
}

// Persistence returns the attached adapter, or nil.
func (s *Store) Persistence() *persist.Adapter {
	return s.persist
}

// ensureSlot returns the named slot, creating it with NotSet if needed.
// Caller holds s.mu.
func (s *Store) ensureSlot(name string) (*slot, bool) {
	if sl, ok := s.slots[name]; ok {
		return sl, false
	}
	sl := newSlot(value.NotSet)
	s.slots[name] = sl
	return sl, true
}

// resolve is ensureSlot honouring strict mode. Caller holds s.mu.
func (s *Store) resolve(name string, create bool) (*slot, bool, error) {
	if sl, ok := s.slots[name]; ok {
		return sl, false, nil
	}
	if s.strict && !create {
		return nil, false, &UnknownNameError{Name: name}
	}
	sl, created := s.ensureSlot(name)
	return sl, created, nil
}

func (s *Store) created(name string) {
	s.logger.Debug("slot created", "name", name)
	if s.observer != nil {
		s.observer.SlotCreated(name)
	}
}

// ResetRegistry discards every slot and subscription and disarms the
// Initialize guard. Persisted storage is not touched; see Clear.
func (s *Store) ResetRegistry() {
	s.mu.Lock()
	var dropped []string
	for name, sl := range s.slots {
		for range sl.subs {
			dropped = append(dropped, name)
		}
	}
	s.slots = make(map[string]*slot)
	s.tokens = make(map[Token]*slot)
	s.initialized = false
	s.mu.Unlock()

	s.unsubscribed(dropped)
}

// unsubscribed reports one Unsubscribed event per dropped registration.
func (s *Store) unsubscribed(names []string) {
	if s.observer == nil {
		return
	}
	for _, name := range names {
		s.observer.Unsubscribed(name)
	}
}

// Clear removes the persisted snapshot and deregisters the teardown hook when
// persistence is active, then resets the registry. Storage errors are
// returned after the registry has been reset.
func (s *Store) Clear(ctx context.Context) error {
	var err error
	if s.persist != nil {
		err = s.persist.Clear(ctx)
	}
	s.ResetRegistry()
	return err
}

// Flush writes the current snapshot through the persistence adapter.
// It is a no-op without an active adapter.
func (s *Store) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	return s.persist.Flush(ctx)
}

// Names returns the sorted names of every slot, including slots that have
// been referenced but never written.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of slots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Snapshot returns the current value of every slot that holds one.
// Subscribers are never part of a snapshot.
func (s *Store) Snapshot() map[string]value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]value.Value, len(s.slots))
	for name, sl := range s.slots {
		if sl.value.IsSet() {
			out[name] = sl.value
		}
	}
	return out
}

// Restore replaces each named slot with a fresh slot holding the value and
// no subscribers. Listeners of replaced slots are dropped without being
// notified; the observer sees one Unsubscribed per dropped registration.
func (s *Store) Restore(values map[string]value.Value) {
	s.mu.Lock()
	var fresh, dropped []string
	for name, v := range values {
		if old, ok := s.slots[name]; ok {
			for _, tok := range old.order {
				delete(s.tokens, tok)
				dropped = append(dropped, name)
			}
		} else {
			fresh = append(fresh, name)
		}
		s.slots[name] = newSlot(v)
	}
	s.mu.Unlock()

	s.unsubscribed(dropped)
	sort.Strings(fresh)
	for _, name := range fresh {
		s.created(name)
	}
}

var _ persist.Registry = (*Store)(nil)
