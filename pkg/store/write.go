package store

import "github.com/vango-dev/rstore/pkg/value"

// Updater computes a slot's next value from its current one.
type Updater interface {
	next(old value.Value) value.Value
}

type literal struct{ v value.Value }

func (l literal) next(value.Value) value.Value { return l.v }

type updateFunc func(old value.Value) value.Value

func (f updateFunc) next(old value.Value) value.Value { return f(old) }

// Literal is an Updater that replaces the value with v.
func Literal(v value.Value) Updater { return literal{v: v} }

// Func is an Updater that derives the value from the current one.
// fn runs without the store lock held and may read the store.
func Func(fn func(old value.Value) value.Value) Updater { return updateFunc(fn) }

// Set replaces the named slot's value with v.
func (s *Store) Set(name string, v value.Value) error {
	return s.Write(name, Literal(v))
}

// Update replaces the named slot's value with fn(current).
func (s *Store) Update(name string, fn func(old value.Value) value.Value) error {
	return s.Write(name, Func(fn))
}

// Write resolves the slot, computes the next value and, when it differs from
// the current one under value.Same, stores it and notifies every subscriber
// in registration order. A result that is NotSet, or holds NotSet anywhere
// inside it, fails with *InvalidValueError and leaves the slot unchanged.
//
// Concurrent Func writes to the same slot are last-writer-wins.
func (s *Store) Write(name string, u Updater) error {
	return s.write(name, u, false)
}

func (s *Store) write(name string, u Updater, create bool) error {
	s.mu.Lock()
	sl, created, err := s.resolve(name, create)
	if err != nil {
		s.mu.Unlock()
		s.wrote(name, false, err)
		return err
	}
	old := sl.value
	s.mu.Unlock()

	if created {
		s.created(name)
	}

	next := u.next(old)
	if !next.Complete() {
		err := &InvalidValueError{Name: name}
		s.wrote(name, false, err)
		return err
	}

	s.mu.Lock()
	cur := s.slots[name]
	if cur == nil {
		// The registry was reset while fn ran; write into a fresh slot.
		cur, _ = s.ensureSlot(name)
	}
	if value.Same(cur.value, next) {
		s.mu.Unlock()
		s.wrote(name, false, nil)
		return nil
	}
	cur.value = next
	listeners := cur.listeners()
	s.mu.Unlock()

	s.wrote(name, true, nil)
	s.notify(name, listeners)
	return nil
}

// notify runs outside the lock. A listener that writes recurses here.
func (s *Store) notify(name string, listeners []Listener) {
	for _, l := range listeners {
		l.MarkDirty()
	}
	if s.observer != nil && len(listeners) > 0 {
		s.observer.Notified(name, len(listeners))
	}
}

func (s *Store) wrote(name string, changed bool, err error) {
	if s.observer != nil {
		s.observer.Wrote(name, changed, err)
	}
}
