package store

import (
	"sync"

	"github.com/vango-dev/rstore/pkg/value"
)

// Token identifies one registration of a listener on a slot.
type Token uint64

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	store *Store
	token Token
	once  sync.Once
}

// Token returns the registration token.
func (sub *Subscription) Token() Token { return sub.token }

// Unsubscribe removes exactly this registration. Calling it again, or after
// the registry was reset, does nothing.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.Unsubscribe(sub.token)
	})
}

// Subscribe registers l on the named slot and returns the slot's current
// value. Registering a listener whose ID is already subscribed returns a
// subscription for the existing token. The slot is created with NotSet when
// it does not exist, unless the store is strict.
func (s *Store) Subscribe(name string, l Listener) (value.Value, *Subscription, error) {
	s.mu.Lock()
	sl, created, err := s.resolve(name, false)
	if err != nil {
		s.mu.Unlock()
		return value.NotSet, nil, err
	}

	tok, dup := sl.byID[l.ID()]
	if !dup {
		s.nextToken++
		tok = s.nextToken
		sl.subs[tok] = l
		sl.byID[l.ID()] = tok
		sl.order = append(sl.order, tok)
		s.tokens[tok] = sl
	}
	v := sl.value
	s.mu.Unlock()

	if created {
		s.created(name)
	}
	if !dup && s.observer != nil {
		s.observer.Subscribed(name)
	}
	return v, &Subscription{store: s, token: tok}, nil
}

// Unsubscribe removes the registration identified by tok. Unknown tokens
// are ignored.
func (s *Store) Unsubscribe(tok Token) {
	s.mu.Lock()
	sl, ok := s.tokens[tok]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tokens, tok)
	sl.remove(tok)
	name := s.nameOf(sl)
	s.mu.Unlock()

	if s.observer != nil && name != "" {
		s.observer.Unsubscribed(name)
	}
}

// nameOf finds the registry name of sl. Caller holds s.mu.
func (s *Store) nameOf(sl *slot) string {
	for name, cand := range s.slots {
		if cand == sl {
			return name
		}
	}
	return ""
}

// Get returns the named slot's value without subscribing. Names that were
// never referenced yield NotSet and no slot is created.
func (s *Store) Get(name string) value.Value {
	v, _ := s.Lookup(name)
	return v
}

// Lookup is Get that also reports whether the slot exists.
func (s *Store) Lookup(name string) (value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[name]
	if !ok {
		return value.NotSet, false
	}
	return sl.value, true
}

// SubscriberCount returns the number of registrations on the named slot.
func (s *Store) SubscriberCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[name]
	if !ok {
		return 0
	}
	return len(sl.subs)
}
