package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/rstore/pkg/lifecycle"
	"github.com/vango-dev/rstore/pkg/storage"
	"github.com/vango-dev/rstore/pkg/value"
)

// DefaultKey is the storage key snapshots are written under.
const DefaultKey = "rstore"

// DefaultFlushTimeout bounds the teardown flush.
const DefaultFlushTimeout = 2 * time.Second

const tracerName = "github.com/vango-dev/rstore/pkg/persist"

// Registry is the view of the store the adapter snapshots and restores.
type Registry interface {
	// Snapshot returns the current value of every set slot.
	Snapshot() map[string]value.Value

	// Restore replaces each named slot with a fresh slot holding the value
	// and no subscribers.
	Restore(values map[string]value.Value)
}

// Observer receives persistence events. Implementations must not block.
type Observer interface {
	Restored(mode Mode, slots int, err error)
	Flushed(mode Mode, slots int, err error)
	Cleared(mode Mode, err error)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLocal sets the backend used for Local mode.
func WithLocal(b storage.Backend) Option {
	return func(a *Adapter) { a.local = b }
}

// WithSession sets the backend used for Session mode.
func WithSession(b storage.Backend) Option {
	return func(a *Adapter) { a.session = b }
}

// WithKey sets the storage key. Default: DefaultKey.
func WithKey(key string) Option {
	return func(a *Adapter) { a.key = key }
}

// WithLifecycle sets the teardown signal source.
// Default: a private *lifecycle.Hooks, reachable through Lifecycle().
func WithLifecycle(l lifecycle.Lifecycle) Option {
	return func(a *Adapter) { a.lifecycle = l }
}

// WithFlushTimeout bounds the teardown flush. Default: DefaultFlushTimeout.
func WithFlushTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.flushTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(a *Adapter) { a.observer = o }
}

// WithTracerProvider uses tp instead of the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Adapter) { a.tracer = tp.Tracer(tracerName) }
}

// Adapter restores a registry from a storage backend and writes it back when
// the host terminates.
type Adapter struct {
	local        storage.Backend
	session      storage.Backend
	key          string
	lifecycle    lifecycle.Lifecycle
	flushTimeout time.Duration
	logger       *slog.Logger
	observer     Observer
	tracer       trace.Tracer

	mu         sync.Mutex
	mode       Mode
	backend    storage.Backend
	registry   Registry
	cancelHook func()
}

// New creates an adapter. It does nothing until Enable.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		key:          DefaultKey,
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.lifecycle == nil {
		a.lifecycle = lifecycle.NewHooks()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "persist")
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}
	return a
}

// Key returns the storage key.
func (a *Adapter) Key() string { return a.key }

// Lifecycle returns the teardown signal source hooks are registered with.
func (a *Adapter) Lifecycle() lifecycle.Lifecycle { return a.lifecycle }

// Mode returns the active mode.
func (a *Adapter) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Active reports whether a storage-backed mode is enabled.
func (a *Adapter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backend != nil
}

// Backend returns the backend configured for mode, or nil.
func (a *Adapter) Backend(mode Mode) storage.Backend {
	switch mode {
	case Local:
		return a.local
	case Session:
		return a.session
	}
	return nil
}

// Enable activates mode for reg. For Local and Session it restores the stored
// snapshot into reg, then registers one teardown hook that writes the
// registry back. Enabling again replaces the previous activation.
//
// Backend read errors and malformed snapshots are returned as is.
func (a *Adapter) Enable(ctx context.Context, mode Mode, reg Registry) error {
	var backend storage.Backend
	switch mode {
	case None:
		a.deactivate()
		return nil
	case Local, Session:
		backend = a.Backend(mode)
		if backend == nil {
			return &InvalidConfigError{Mode: mode.String(), Reason: "no backend configured"}
		}
	default:
		return &InvalidConfigError{Mode: mode.String()}
	}

	a.deactivate()

	n, err := a.restore(ctx, mode, backend, reg)
	if a.observer != nil {
		a.observer.Restored(mode, n, err)
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.mode = mode
	a.backend = backend
	a.registry = reg
	var once sync.Once
	a.cancelHook = a.lifecycle.OnTerminate(func() {
		once.Do(a.teardown)
	})
	a.mu.Unlock()

	a.logger.Debug("persistence enabled", "mode", mode.String(), "key", a.key, "restored", n)
	return nil
}

func (a *Adapter) restore(ctx context.Context, mode Mode, backend storage.Backend, reg Registry) (int, error) {
	ctx, span := a.tracer.Start(ctx, "persist.restore", trace.WithAttributes(
		attribute.String("rstore.mode", mode.String()),
		attribute.String("rstore.key", a.key),
	))
	defer span.End()

	data, err := backend.Get(ctx, a.key)
	if err != nil {
		recordError(span, err)
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}

	var values map[string]value.Value
	if err := json.Unmarshal(data, &values); err != nil {
		recordError(span, err)
		return 0, err
	}
	for name, v := range values {
		if !v.IsSet() {
			delete(values, name)
		}
	}

	reg.Restore(values)
	span.SetAttributes(attribute.Int("rstore.slots", len(values)))
	return len(values), nil
}

// teardown runs on the host's termination signal. Failures are logged, never
// returned.
func (a *Adapter) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.flushTimeout)
	defer cancel()

	if err := a.Flush(ctx); err != nil {
		a.logger.Error("teardown flush failed", "key", a.key, "error", err)
	}
}

// Flush writes the current registry values under the key. Slots whose value
// has no JSON form are logged and left out; the rest are still written. It is
// a no-op when no storage-backed mode is active.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.Lock()
	mode, backend, reg := a.mode, a.backend, a.registry
	a.mu.Unlock()

	if backend == nil {
		return nil
	}

	ctx, span := a.tracer.Start(ctx, "persist.flush", trace.WithAttributes(
		attribute.String("rstore.mode", mode.String()),
		attribute.String("rstore.key", a.key),
	))
	defer span.End()

	snapshot := reg.Snapshot()
	entries := make(map[string]json.RawMessage, len(snapshot))
	for name, v := range snapshot {
		data, err := json.Marshal(v)
		if err != nil {
			a.logger.Warn("slot not persisted", "name", name, "error", err)
			continue
		}
		entries[name] = data
	}

	data, err := json.Marshal(entries)
	if err == nil {
		err = backend.Set(ctx, a.key, data)
	}
	if err != nil {
		recordError(span, err)
	}
	span.SetAttributes(
		attribute.Int("rstore.slots", len(entries)),
		attribute.Int("rstore.skipped", len(snapshot)-len(entries)),
	)

	if a.observer != nil {
		a.observer.Flushed(mode, len(entries), err)
	}
	return err
}

// Clear removes the stored snapshot, deregisters the teardown hook and
// deactivates the adapter. It is a no-op when nothing is active.
func (a *Adapter) Clear(ctx context.Context) error {
	a.mu.Lock()
	mode, backend := a.mode, a.backend
	a.mu.Unlock()

	if backend == nil {
		return nil
	}

	ctx, span := a.tracer.Start(ctx, "persist.clear", trace.WithAttributes(
		attribute.String("rstore.mode", mode.String()),
		attribute.String("rstore.key", a.key),
	))
	defer span.End()

	err := backend.Remove(ctx, a.key)
	if err != nil {
		recordError(span, err)
	}
	a.deactivate()

	if a.observer != nil {
		a.observer.Cleared(mode, err)
	}
	return err
}

func (a *Adapter) deactivate() {
	a.mu.Lock()
	cancel := a.cancelHook
	a.mode = None
	a.backend = nil
	a.registry = nil
	a.cancelHook = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
