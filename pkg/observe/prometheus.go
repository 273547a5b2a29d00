package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/store"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "rstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// SlotLabels adds a "slot" label to write and notification counters.
	// Only enable it when the set of slot names is small and fixed.
	SlotLabels bool

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithSlotLabels labels write and notification counters by slot name.
func WithSlotLabels() Option {
	return func(c *Config) { c.SlotLabels = true }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "rstore",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus records store and persistence events as Prometheus metrics.
// It implements store.Observer and persist.Observer.
//
// Metrics collected:
//   - rstore_slots_created_total: Counter of slots created
//   - rstore_writes_total: Counter of writes by result (changed, unchanged, rejected)
//   - rstore_notifications_total: Counter of listener notifications
//   - rstore_subscriptions: Gauge of live subscriptions
//   - rstore_persist_operations_total: Counter by op (restore, flush, clear), mode and status
//   - rstore_persist_slots: Gauge of slots in the last restore or flush, by op
type Prometheus struct {
	slotLabels bool

	slotsCreated  prometheus.Counter
	writes        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	subscriptions prometheus.Gauge
	persistOps    *prometheus.CounterVec
	persistSlots  *prometheus.GaugeVec
}

// New registers the metrics and returns the observer. Registering twice on
// the same registry panics, as with promauto.
func New(opts ...Option) *Prometheus {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	writeLabels := []string{"result"}
	notifyLabels := []string(nil)
	if config.SlotLabels {
		writeLabels = append(writeLabels, "slot")
		notifyLabels = []string{"slot"}
	}

	return &Prometheus{
		slotLabels: config.SlotLabels,

		slotsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "slots_created_total",
			Help:        "Total number of slots created",
			ConstLabels: config.ConstLabels,
		}),

		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of slot writes by result",
			ConstLabels: config.ConstLabels,
		}, writeLabels),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener notifications",
			ConstLabels: config.ConstLabels,
		}, notifyLabels),

		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscriptions",
			Help:        "Number of live subscriptions",
			ConstLabels: config.ConstLabels,
		}),

		persistOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_operations_total",
			Help:        "Total number of persistence operations by op, mode and status",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "mode", "status"}),

		persistSlots: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_slots",
			Help:        "Number of slots in the last successful restore or flush",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),
	}
}

var (
	_ store.Observer   = (*Prometheus)(nil)
	_ persist.Observer = (*Prometheus)(nil)
)

// SlotCreated implements store.Observer.
func (p *Prometheus) SlotCreated(name string) {
	p.slotsCreated.Inc()
}

// Wrote implements store.Observer.
func (p *Prometheus) Wrote(name string, changed bool, err error) {
	result := "unchanged"
	switch {
	case err != nil:
		result = "rejected"
	case changed:
		result = "changed"
	}
	if p.slotLabels {
		p.writes.WithLabelValues(result, name).Inc()
		return
	}
	p.writes.WithLabelValues(result).Inc()
}

// Notified implements store.Observer.
func (p *Prometheus) Notified(name string, listeners int) {
	if p.slotLabels {
		p.notifications.WithLabelValues(name).Add(float64(listeners))
		return
	}
	p.notifications.WithLabelValues().Add(float64(listeners))
}

// Subscribed implements store.Observer.
func (p *Prometheus) Subscribed(name string) { p.subscriptions.Inc() }

// Unsubscribed implements store.Observer.
func (p *Prometheus) Unsubscribed(name string) { p.subscriptions.Dec() }

// Restored implements persist.Observer.
func (p *Prometheus) Restored(mode persist.Mode, slots int, err error) {
	p.persistOp("restore", mode, slots, err)
}

// Flushed implements persist.Observer.
func (p *Prometheus) Flushed(mode persist.Mode, slots int, err error) {
	p.persistOp("flush", mode, slots, err)
}

// Cleared implements persist.Observer.
func (p *Prometheus) Cleared(mode persist.Mode, err error) {
	p.persistOps.WithLabelValues("clear", mode.String(), status(err)).Inc()
}

func (p *Prometheus) persistOp(op string, mode persist.Mode, slots int, err error) {
	p.persistOps.WithLabelValues(op, mode.String(), status(err)).Inc()
	if err == nil {
		p.persistSlots.WithLabelValues(op).Set(float64(slots))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
