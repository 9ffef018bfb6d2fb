package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/theirongolddev/allot/internal/model"
)

// Snapshot is one published, fully recomputed tree. Nodes is shared with
// every reader of the snapshot and must be treated as read-only.
type Snapshot struct {
	Revision   int64        `json:"revision"`
	ID         string       `json:"id"`
	At         time.Time    `json:"at"`
	Plan       string       `json:"plan"`
	Nodes      []model.Node `json:"nodes"`
	GrandTotal float64      `json:"grand_total"`
}

// Engine owns the frozen baseline and the currently published tree.
// Readers load the published snapshot without locking; writers are
// serialized and each performs the full recompute before publishing.
type Engine struct {
	plan     string
	baseline model.Baseline
	policy   ZeroTotalPolicy
	log      *zap.Logger
	now      func() time.Time

	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]chan Snapshot
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithZeroTotalPolicy sets the policy used when distributing into
// zero-total subtrees.
func WithZeroTotalPolicy(p ZeroTotalPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithClock overrides the timestamp source for snapshots.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine initializes the plan's tree and publishes revision 0.
func NewEngine(plan model.Plan, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		plan: plan.Name,
		log:  zap.NewNop(),
		now:  time.Now,
		subs: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}

	nodes, baseline, err := Initialize(plan.Nodes)
	if err != nil {
		return nil, fmt.Errorf("initializing plan %q: %w", plan.Name, err)
	}
	e.baseline = baseline

	snap := &Snapshot{
		Revision:   0,
		ID:         uuid.NewString(),
		At:         e.now(),
		Plan:       plan.Name,
		Nodes:      nodes,
		GrandTotal: Round2(model.GrandTotal(nodes)),
	}
	e.current.Store(snap)

	e.log.Debug("plan initialized",
		zap.String("plan", plan.Name),
		zap.Int("nodes", len(baseline)),
		zap.Float64("grand_total", snap.GrandTotal),
	)
	return e, nil
}

// Snapshot returns the currently published tree.
func (e *Engine) Snapshot() Snapshot {
	return *e.current.Load()
}

// Baseline returns a copy of the frozen baseline.
func (e *Engine) Baseline() model.Baseline {
	return e.baseline.Copy()
}

// Policy returns the configured zero-total policy.
func (e *Engine) Policy() ZeroTotalPolicy {
	return e.policy
}

// Apply evaluates one edit against the published tree. A new revision is
// published only when the edit is applied; otherwise the current snapshot is
// returned with the rejection in the outcome. A context canceled before the
// writer lock is acquired rejects the edit with ctx.Err().
func (e *Engine) Apply(ctx context.Context, req model.EditRequest) (Snapshot, model.Outcome) {
	if err := ctx.Err(); err != nil {
		return e.Snapshot(), model.Outcome{Err: err}
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return e.Snapshot(), model.Outcome{Err: err}
	}

	cur := e.current.Load()
	nodes, out := Evaluate(cur.Nodes, e.baseline, req, WithZeroTotal(e.policy))
	if !out.Applied {
		e.log.Info("edit rejected",
			zap.String("id", req.ID),
			zap.String("value", req.Raw),
			zap.Stringer("kind", req.Kind),
			zap.Error(out.Err),
		)
		return *cur, out
	}

	next := &Snapshot{
		Revision:   cur.Revision + 1,
		ID:         uuid.NewString(),
		At:         e.now(),
		Plan:       cur.Plan,
		Nodes:      nodes,
		GrandTotal: Round2(model.GrandTotal(nodes)),
	}
	e.current.Store(next)

	if e.log.Core().Enabled(zapcore.DebugLevel) && !IsConsistent(nodes) {
		e.log.Error("subtotals out of step with children after edit",
			zap.String("id", req.ID),
			zap.Int64("revision", next.Revision),
		)
	}
	e.log.Debug("edit applied",
		zap.String("id", req.ID),
		zap.Stringer("kind", req.Kind),
		zap.Float64("target", out.Target),
		zap.Int64("revision", next.Revision),
		zap.Float64("grand_total", next.GrandTotal),
	)

	e.publish(*next)
	return *next, out
}

// ApplyAll applies edits in order and returns the final snapshot plus one
// outcome per edit.
func (e *Engine) ApplyAll(ctx context.Context, reqs []model.EditRequest) (Snapshot, []model.Outcome) {
	outcomes := make([]model.Outcome, 0, len(reqs))
	snap := e.Snapshot()
	for _, req := range reqs {
		var out model.Outcome
		snap, out = e.Apply(ctx, req)
		outcomes = append(outcomes, out)
		if errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded) {
			break
		}
	}
	return snap, outcomes
}

// Subscribe registers a channel that receives every newly published
// snapshot. Delivery never blocks the writer: a full channel drops the
// snapshot. The returned func unregisters and closes the channel.
func (e *Engine) Subscribe(buf int) (<-chan Snapshot, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Snapshot, buf)

	e.subMu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.subs[id] = ch
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) publish(s Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
