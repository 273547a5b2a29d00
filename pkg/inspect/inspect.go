package inspect

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/rstore/pkg/store"
	"github.com/vango-dev/rstore/pkg/value"
)

const tracerName = "github.com/vango-dev/rstore/pkg/inspect"

// MaxBodyBytes bounds PUT /slots/{name} request bodies.
const MaxBodyBytes = 1 << 20

const writeWait = 5 * time.Second

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// WithGatherer serves GET /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(i *Inspector) { i.gatherer = g }
}

// WithAllowedOrigins accepts watch connections from these origins in
// addition to same-host requests.
func WithAllowedOrigins(origins ...string) Option {
	return func(i *Inspector) {
		for _, o := range origins {
			i.origins[o] = true
		}
	}
}

// WithTracerProvider uses tp instead of the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Inspector) { i.tracer = tp.Tracer(tracerName) }
}

// Message is sent to watch connections: once on connect and once per
// coalesced change. Value is omitted while the slot is unset.
type Message struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Inspector serves a store over HTTP:
//
//	GET  /slots               snapshot of every set slot
//	GET  /slots/{name}        one value; 404 if never referenced
//	PUT  /slots/{name}        write a JSON value
//	GET  /slots/{name}/watch  websocket stream of Message
//	POST /flush               persist now
//	GET  /metrics             Prometheus metrics, WithGatherer only
type Inspector struct {
	store    *store.Store
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	tracer   trace.Tracer
	origins  map[string]bool
	router   chi.Router
	upgrader websocket.Upgrader

	mu       sync.Mutex
	watchers map[*websocket.Conn]struct{}
}

// New creates an inspector for s.
func New(s *store.Store, opts ...Option) *Inspector {
	i := &Inspector{
		store:    s,
		origins:  make(map[string]bool),
		watchers: make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	i.logger = i.logger.With("component", "inspect")
	if i.tracer == nil {
		i.tracer = otel.Tracer(tracerName)
	}
	i.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     i.checkOrigin,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(i.trace)

	r.Get("/slots", i.handleSnapshot)
	r.Get("/slots/{name}", i.handleGet)
	r.Put("/slots/{name}", i.handlePut)
	r.Get("/slots/{name}/watch", i.handleWatch)
	r.Post("/flush", i.handleFlush)
	if i.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
	}
	i.router = r
	return i
}

// ServeHTTP implements http.Handler.
func (i *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i.router.ServeHTTP(w, r)
}

// trace wraps each request in a span and logs it.
func (i *Inspector) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := i.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		i.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(ctx),
		)
	})
}

func (i *Inspector) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || i.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (i *Inspector) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]json.RawMessage)
	for name, v := range i.store.Snapshot() {
		data, err := v.MarshalJSON()
		if err != nil {
			// Opaque values have no JSON form.
			data = []byte("null")
		}
		out[name] = data
	}
	writeJSON(w, http.StatusOK, out)
}

func (i *Inspector) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := i.store.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "no slot named '"+name+"'")
		return
	}
	if !v.IsSet() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	data, err := v.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (i *Inspector) handlePut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	v, err := value.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON value: "+err.Error())
		return
	}

	if err := i.store.Set(name, v); err != nil {
		if errors.Is(err, store.ErrInvalidValue) || errors.Is(err, store.ErrUnknownName) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (i *Inspector) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := i.store.Flush(r.Context()); err != nil {
		i.logger.Error("flush failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWatch streams the slot over a websocket until the client goes away.
// Notifications that arrive while a message is being written collapse into
// one message carrying the latest value.
func (i *Inspector) handleWatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	dirty := make(chan struct{}, 1)
	listener := store.ListenerFunc(func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})
	_, sub, err := i.store.Subscribe(name, listener)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Unsubscribe()

	i.mu.Lock()
	i.watchers[conn] = struct{}{}
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		delete(i.watchers, conn)
		i.mu.Unlock()
	}()

	// Reader: detect disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := i.send(conn, name); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-dirty:
			if err := i.send(conn, name); err != nil {
				i.logger.Debug("watch write failed", "name", name, "error", err)
				return
			}
		}
	}
}

func (i *Inspector) send(conn *websocket.Conn, name string) error {
	msg := Message{Name: name}
	if v := i.store.Get(name); v.IsSet() {
		data, err := v.MarshalJSON()
		if err != nil {
			data = []byte("null")
		}
		msg.Value = data
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// WatcherCount returns the number of open watch connections.
func (i *Inspector) WatcherCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.watchers)
}

// Close closes all watch connections.
func (i *Inspector) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()

	for conn := range i.watchers {
		conn.Close()
		delete(i.watchers, conn)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
