// Package daemon provides the long-running local allocation service. It
// hosts one engine, accepts edits over HTTP and streams new revisions.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
)

// Config controls the daemon runtime behavior.
type Config struct {
	PlanPath     string // empty for the built-in sample
	Addr         string
	EventsBuffer int
}

// Event is emitted whenever the engine publishes a new revision.
type Event struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Revision   int64     `json:"revision"`
	SnapshotID string    `json:"snapshot_id"`
	GrandTotal float64   `json:"grand_total"`
	Delta      float64   `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	Plan            string    `json:"plan"`
	PlanPath        string    `json:"plan_path,omitempty"`
	ZeroTotal       string    `json:"zero_total"`
	Revision        int64     `json:"revision"`
	SnapshotID      string    `json:"snapshot_id"`
	GrandTotal      float64   `json:"grand_total"`
	EditsApplied    int64     `json:"edits_applied"`
	EditsRejected   int64     `json:"edits_rejected"`
	LastEditAt      time.Time `json:"last_edit_at,omitzero"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// EditResponse is the body returned by POST /v1/edits.
type EditResponse struct {
	Applied  bool              `json:"applied"`
	Reason   string            `json:"reason,omitempty"`
	Target   float64           `json:"target,omitempty"`
	Snapshot pipeline.Snapshot `json:"snapshot"`
}

type metrics struct {
	registry   *prometheus.Registry
	edits      *prometheus.CounterVec
	grandTotal prometheus.Gauge
	revision   prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		edits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allot_edits_total",
			Help: "Edits received by outcome",
		}, []string{"outcome"}),
		grandTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allot_grand_total",
			Help: "Grand total of the published tree",
		}),
		revision: factory.NewGauge(prometheus.GaugeOpts{
			Name: "allot_revision",
			Help: "Revision of the published tree",
		}),
	}
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	engine *pipeline.Engine
	log    *zap.Logger
	m      *metrics

	mu            sync.RWMutex
	startedAt     time.Time
	editsApplied  int64
	editsRejected int64
	lastEditAt    time.Time
	lastError     string
	nextEventID   int64
	events        []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service serving eng.
func New(cfg Config, eng *pipeline.Engine, log *zap.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8417"
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		cfg:       cfg,
		engine:    eng,
		log:       log,
		m:         newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	snap := eng.Snapshot()
	s.m.grandTotal.Set(snap.GrandTotal)
	s.m.revision.Set(float64(snap.Revision))
	return s
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.m.registry, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/tree", s.handleTree)
		r.Get("/baseline", s.handleBaseline)
		r.Post("/edits", s.handleEdit)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// Run serves the HTTP API and pumps engine revisions into the event log
// until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 5 * time.Second,
	}

	ready := make(chan struct{})
	eg.Go(func() error {
		return s.pump(egctx, ready)
	})
	<-ready

	eg.Go(func() error {
		s.log.Info("daemon listening", zap.String("addr", s.cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// pump turns published snapshots into events. The current snapshot is
// recorded first so the event log is useful immediately. ready is closed
// once the engine subscription is in place. pump is the only writer of the
// grand total and revision gauges after New, so they never move backwards.
func (s *Service) pump(ctx context.Context, ready chan<- struct{}) error {
	ch, unsubscribe := s.engine.Subscribe(64)
	defer unsubscribe()

	prev := s.engine.Snapshot()
	s.publishEvent(newEvent("snapshot", prev, 0))
	close(ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-ch:
			if snap.Revision <= prev.Revision {
				continue
			}
			s.m.grandTotal.Set(snap.GrandTotal)
			s.m.revision.Set(float64(snap.Revision))
			s.publishEvent(newEvent("revision", snap, pipeline.Round2(snap.GrandTotal-prev.GrandTotal)))
			prev = snap
		}
	}
}

func newEvent(typ string, snap pipeline.Snapshot, delta float64) Event {
	return Event{
		Type:       typ,
		Timestamp:  snap.At,
		Revision:   snap.Revision,
		SnapshotID: snap.ID,
		GrandTotal: snap.GrandTotal,
		Delta:      delta,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	snap := s.engine.Snapshot()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		Plan:            snap.Plan,
		PlanPath:        s.cfg.PlanPath,
		ZeroTotal:       s.engine.Policy().String(),
		Revision:        snap.Revision,
		SnapshotID:      snap.ID,
		GrandTotal:      snap.GrandTotal,
		EditsApplied:    s.editsApplied,
		EditsRejected:   s.editsRejected,
		LastEditAt:      s.lastEditAt,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) recordOutcome(out model.Outcome) {
	s.m.edits.WithLabelValues(outcomeLabel(out)).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEditAt = time.Now()
	if out.Applied {
		s.editsApplied++
		s.lastError = ""
		return
	}
	s.editsRejected++
	s.lastError = out.Reason()
}

func outcomeLabel(out model.Outcome) string {
	switch {
	case out.Applied:
		return "applied"
	case errors.Is(out.Err, pipeline.ErrEmptyInput):
		return "empty_input"
	case errors.Is(out.Err, pipeline.ErrNotANumber):
		return "not_a_number"
	case errors.Is(out.Err, pipeline.ErrNotFinite):
		return "not_finite"
	case errors.Is(out.Err, pipeline.ErrUnknownNode):
		return "unknown_node"
	}
	return "canceled"
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleTree(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Service) handleBaseline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Baseline())
}

// editBody accepts the value either as a JSON string or a bare number.
type editBody struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
	Kind  model.EditKind  `json:"kind"`
}

func (b editBody) request() (model.EditRequest, error) {
	req := model.EditRequest{ID: b.ID, Kind: b.Kind}
	raw := strings.TrimSpace(string(b.Value))
	switch {
	case raw == "" || raw == "null":
	case strings.HasPrefix(raw, `"`):
		if err := json.Unmarshal(b.Value, &req.Raw); err != nil {
			return req, err
		}
	default:
		req.Raw = raw
	}
	return req, nil
}

func (s *Service) handleEdit(w http.ResponseWriter, r *http.Request) {
	var body editBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("decoding edit: %v", err), http.StatusBadRequest)
		return
	}
	req, err := body.request()
	if err != nil {
		http.Error(w, fmt.Sprintf("decoding edit value: %v", err), http.StatusBadRequest)
		return
	}

	snap, out := s.engine.Apply(r.Context(), req)
	s.recordOutcome(out)

	writeJSON(w, http.StatusOK, EditResponse{
		Applied:  out.Applied,
		Reason:   out.Reason(),
		Target:   out.Target,
		Snapshot: snap,
	})
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	writeSSE(w, newEvent("snapshot", s.engine.Snapshot(), 0))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
