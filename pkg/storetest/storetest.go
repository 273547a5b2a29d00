package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vango-dev/rstore/pkg/lifecycle"
	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/storage"
	"github.com/vango-dev/rstore/pkg/store"
)

// Counter is a store.Listener that counts notifications.
type Counter struct {
	id    uint64
	count atomic.Int64

	// OnDirty, when set, runs on every notification after the count is
	// incremented. It may write to the store.
	OnDirty func()
}

// NewCounter returns a Counter with a fresh listener ID.
func NewCounter() *Counter {
	return &Counter{id: store.NextListenerID()}
}

// MarkDirty implements store.Listener.
func (c *Counter) MarkDirty() {
	c.count.Add(1)
	if c.OnDirty != nil {
		c.OnDirty()
	}
}

// ID implements store.Listener.
func (c *Counter) ID() uint64 { return c.id }

// Count returns the number of notifications received.
func (c *Counter) Count() int { return int(c.count.Load()) }

// ExpectCount fails the test if c did not receive exactly want notifications.
func ExpectCount(t *testing.T, c *Counter, want int) {
	t.Helper()
	if got := c.Count(); got != want {
		t.Errorf("listener notified %d times, want %d", got, want)
	}
}

// ErrInjected is the default error returned by a FailingBackend.
var ErrInjected = errors.New("storetest: injected failure")

// FailingBackend is a storage.Backend whose operations fail on demand.
// Operations that are not set to fail are served from an in-memory map.
type FailingBackend struct {
	FailGet    bool
	FailSet    bool
	FailRemove bool

	// Err is returned by failing operations. Default: ErrInjected.
	Err error

	mu   sync.Mutex
	data map[string][]byte
}

func (f *FailingBackend) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// Get implements storage.Backend.
func (f *FailingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if f.FailGet {
		return nil, f.err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

// Set implements storage.Backend.
func (f *FailingBackend) Set(ctx context.Context, key string, data []byte) error {
	if f.FailSet {
		return f.err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.data[key] = append([]byte(nil), data...)
	return nil
}

// Remove implements storage.Backend.
func (f *FailingBackend) Remove(ctx context.Context, key string) error {
	if f.FailRemove {
		return f.err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// Close implements storage.Backend.
func (f *FailingBackend) Close() error { return nil }

// PersistentStore bundles a store with the in-memory backends and manual
// lifecycle behind its persistence adapter.
type PersistentStore struct {
	Store   *store.Store
	Adapter *persist.Adapter
	Hooks   *lifecycle.Hooks
	Local   *storage.Memory
	Session *storage.Memory
}

// NewPersistentStore builds a store with persistence over fresh memory
// backends. Extra store options are applied after WithPersistence.
func NewPersistentStore(t *testing.T, opts ...store.Option) *PersistentStore {
	t.Helper()
	ps := &PersistentStore{
		Hooks:   lifecycle.NewHooks(),
		Local:   storage.NewMemory(),
		Session: storage.NewMemory(),
	}
	ps.Adapter = persist.New(
		persist.WithLocal(ps.Local),
		persist.WithSession(ps.Session),
		persist.WithLifecycle(ps.Hooks),
	)
	ps.Store = store.New(append([]store.Option{store.WithPersistence(ps.Adapter)}, opts...)...)
	t.Cleanup(func() {
		_ = ps.Local.Close()
		_ = ps.Session.Close()
	})
	return ps
}

// Terminate fires the host termination signal.
func (ps *PersistentStore) Terminate() { ps.Hooks.Terminate() }

// Seed writes a raw snapshot under the default key.
func Seed(t *testing.T, b storage.Backend, snapshot string) {
	t.Helper()
	if err := b.Set(context.Background(), persist.DefaultKey, []byte(snapshot)); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

// ExpectSnapshot fails the test if the snapshot stored under the default key
// is not exactly want. An empty want asserts that no snapshot is stored.
func ExpectSnapshot(t *testing.T, b storage.Backend, want string) {
	t.Helper()
	data, err := b.Get(context.Background(), persist.DefaultKey)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(data) != want {
		t.Errorf("stored snapshot = %q, want %q", data, want)
	}
}
