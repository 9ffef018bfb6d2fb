package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/theirongolddev/allot/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRetailEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(model.Plan{Name: "retail", Nodes: retail()}, opts...)
	require.NoError(t, err)
	return e
}

func TestNewEngine_PublishesRevisionZero(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := newRetailEngine(t, WithClock(func() time.Time { return fixed }))

	snap := e.Snapshot()
	assert.Equal(t, int64(0), snap.Revision)
	assert.Equal(t, "retail", snap.Plan)
	assert.Equal(t, fixed, snap.At)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2500.0, snap.GrandTotal)
	assert.Equal(t, 1500.0, e.Baseline()["electronics"])
}

func TestNewEngine_InvalidPlan(t *testing.T) {
	_, err := NewEngine(model.Plan{Name: "dup", Nodes: []model.Node{leaf("a", 1), leaf("a", 2)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `initializing plan "dup"`)
}

func TestEngine_ApplyPublishesOnlyAppliedEdits(t *testing.T) {
	e := newRetailEngine(t)
	first := e.Snapshot()

	snap, out := e.Apply(context.Background(), model.EditRequest{ID: "phones", Raw: "abc"})
	assert.False(t, out.Applied)
	assert.ErrorIs(t, out.Err, ErrNotANumber)
	assert.Equal(t, first.ID, snap.ID)
	assert.Equal(t, int64(0), e.Snapshot().Revision)

	snap, out = e.Apply(context.Background(), model.EditRequest{ID: "phones", Raw: "1000"})
	require.True(t, out.Applied)
	assert.Equal(t, int64(1), snap.Revision)
	assert.NotEqual(t, first.ID, snap.ID)
	assert.Equal(t, 2700.0, snap.GrandTotal)
	assert.Equal(t, snap, e.Snapshot())

	// The earlier snapshot is still intact.
	assert.Equal(t, 800.0, mustFind(t, first.Nodes, "phones").Value)
}

func TestEngine_DebugLoggingChecksConsistency(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := newRetailEngine(t, WithLogger(zap.New(core)))

	_, out := e.Apply(context.Background(), model.EditRequest{ID: "electronics", Raw: "2000"})
	require.True(t, out.Applied)

	assert.Equal(t, 1, logs.FilterMessage("edit applied").Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestEngine_BaselineIsACopy(t *testing.T) {
	e := newRetailEngine(t)
	b := e.Baseline()
	b["phones"] = 1

	_, _ = e.Apply(context.Background(), model.EditRequest{ID: "phones", Raw: "1000"})
	assert.Equal(t, "25.00", mustFind(t, e.Snapshot().Nodes, "phones").Variance)
}

func TestEngine_ZeroTotalPolicyOption(t *testing.T) {
	plan := model.Plan{Name: "z", Nodes: []model.Node{parent("p", 0, leaf("a", 0), leaf("b", 0))}}
	e, err := NewEngine(plan, WithZeroTotalPolicy(ZeroTotalEqualSplit))
	require.NoError(t, err)
	assert.Equal(t, ZeroTotalEqualSplit, e.Policy())

	snap, out := e.Apply(context.Background(), model.EditRequest{ID: "p", Raw: "10"})
	require.True(t, out.Applied)
	assert.Equal(t, 10.0, snap.GrandTotal)
}

func TestEngine_CanceledContext(t *testing.T) {
	e := newRetailEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, out := e.Apply(ctx, model.EditRequest{ID: "phones", Raw: "1"})
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, int64(0), e.Snapshot().Revision)

	_, outs := e.ApplyAll(ctx, []model.EditRequest{{ID: "phones", Raw: "1"}, {ID: "laptops", Raw: "2"}})
	assert.Len(t, outs, 1)
}

func TestEngine_ApplyAll(t *testing.T) {
	e := newRetailEngine(t)

	snap, outs := e.ApplyAll(context.Background(), []model.EditRequest{
		{ID: "phones", Raw: "1000"},
		{ID: "ghost", Raw: "1"},
		{ID: "electronics", Raw: "2000"},
	})

	require.Len(t, outs, 3)
	assert.True(t, outs[0].Applied)
	assert.ErrorIs(t, outs[1].Err, ErrUnknownNode)
	assert.True(t, outs[2].Applied)
	assert.Equal(t, int64(2), snap.Revision)
	assert.Equal(t, 1176.47, mustFind(t, snap.Nodes, "phones").Value)
}

func TestEngine_Subscribe(t *testing.T) {
	e := newRetailEngine(t)
	ch, cancel := e.Subscribe(4)

	_, _ = e.Apply(context.Background(), model.EditRequest{ID: "tables", Raw: "400"})
	_, _ = e.Apply(context.Background(), model.EditRequest{ID: "tables", Raw: "bad"})

	select {
	case snap := <-ch:
		assert.Equal(t, int64(1), snap.Revision)
		assert.Equal(t, 400.0, mustFind(t, snap.Nodes, "tables").Value)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open, "channel closed after unsubscribe")
}

func TestEngine_SlowSubscriberDoesNotBlock(t *testing.T) {
	e := newRetailEngine(t)
	_, cancel := e.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			e.Apply(context.Background(), model.EditRequest{ID: "chairs", Raw: "1", Kind: model.EditPercent})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writer blocked on a full subscriber")
	}
	assert.Equal(t, int64(50), e.Snapshot().Revision)
}

func TestEngine_ConcurrentWritersAndReaders(t *testing.T) {
	e := newRetailEngine(t)
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := []string{"phones", "laptops", "tables", "chairs"}[w%4]
			for i := 0; i < perWriter; i++ {
				e.Apply(context.Background(), model.EditRequest{ID: id, Raw: "100"})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				snap := e.Snapshot()
				if !IsConsistent(snap.Nodes) {
					t.Error("reader observed an inconsistent snapshot")
					return
				}
			}
		}()
	}
	wg.Wait()

	snap := e.Snapshot()
	assert.Equal(t, int64(writers*perWriter), snap.Revision)
	assert.Equal(t, 400.0, snap.GrandTotal)
	checkVariance(t, snap.Nodes, e.Baseline())
}
