package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/refresher"
	"github.com/jdziat/simple-refresh/pkg/schedule"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	return []byte(`[]`), nil
}

func setupCoordinatorTest(t *testing.T, opts ...Option) (*Coordinator, *testingclock.FakeClock) {
	t.Helper()
	clk := testingclock.NewFakeClock(epoch)
	c := New(append([]Option{WithClock(clk)}, opts...)...)
	t.Cleanup(c.Close)
	return c, clk
}

func TestNew_DefaultsUnpaused(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	assert.False(t, c.IsPaused())
	assert.Empty(t, c.Kinds())

	status := c.Status()
	assert.False(t, status.Paused)
	assert.Nil(t, status.PausedUntil)
	assert.Equal(t, 3*time.Minute, status.MaxPause)
}

func TestRegister(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	r, err := c.Register(core.KindTable, &countingFetcher{})
	require.NoError(t, err)
	assert.Equal(t, core.KindTable, r.Kind())

	got, ok := c.Refresher(core.KindTable)
	require.True(t, ok)
	assert.Same(t, r, got)
}

func TestRegister_Duplicate(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	_, err := c.Register(core.KindLog, &countingFetcher{})
	require.NoError(t, err)
	_, err = c.Register(core.KindLog, &countingFetcher{})
	assert.ErrorIs(t, err, core.ErrKindExists)
}

func TestRegister_InvalidKind(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	_, err := c.Register("not valid", &countingFetcher{})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestKinds_RegistrationOrder(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	for _, k := range []core.Kind{core.KindNotification, core.KindTable, core.KindLog} {
		_, err := c.Register(k, &countingFetcher{})
		require.NoError(t, err)
	}
	assert.Equal(t, []core.Kind{core.KindNotification, core.KindTable, core.KindLog}, c.Kinds())
}

func TestSharedWindow_PausesEveryKind(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	ctx := context.Background()

	fetchers := map[core.Kind]*countingFetcher{}
	for _, k := range []core.Kind{core.KindTable, core.KindLog, core.KindNotification} {
		f := &countingFetcher{}
		fetchers[k] = f
		_, err := c.Register(k, f)
		require.NoError(t, err)
	}

	c.NoteActivity()

	for k := range fetchers {
		outcome, err := c.Refresh(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, core.OutcomeSkippedPaused, outcome, "kind %s", k)
	}
	for k, state := range c.States() {
		assert.Equal(t, core.StatePaused, state, "kind %s", k)
	}
	for k, f := range fetchers {
		assert.Equal(t, int32(0), f.calls.Load(), "kind %s", k)
	}
}

func TestScenario_ActivityBoundaries(t *testing.T) {
	c, clk := setupCoordinatorTest(t)
	f := &countingFetcher{}
	_, err := c.Register(core.KindTable, f)
	require.NoError(t, err)
	ctx := context.Background()

	outcome, err := c.Refresh(ctx, core.KindTable)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeStarted, outcome)

	clk.Step(1000 * time.Millisecond)
	c.NoteActivity()

	clk.Step(179999 * time.Millisecond)
	assert.True(t, c.IsPaused())

	clk.Step(2 * time.Millisecond)
	assert.False(t, c.IsPaused())

	outcome, err = c.Refresh(ctx, core.KindTable)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeStarted, outcome)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestScenario_EditThenSubmit(t *testing.T) {
	c, clk := setupCoordinatorTest(t)
	f := &countingFetcher{}
	_, err := c.Register(core.KindTable, f)
	require.NoError(t, err)

	c.NoteActivity()
	clk.Step(30 * time.Second)
	c.ResumeNow()

	outcome, err := c.Refresh(context.Background(), core.KindTable)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeStarted, outcome)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestWithMaxPause(t *testing.T) {
	c, clk := setupCoordinatorTest(t, WithMaxPause(30*time.Second))

	c.NoteActivity()
	clk.Step(29 * time.Second)
	assert.True(t, c.IsPaused())
	clk.Step(time.Second)
	assert.False(t, c.IsPaused())
}

func TestTrigger_UnknownKind(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	_, err := c.Trigger(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrUnknownKind)
	_, err = c.Refresh(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrUnknownKind)
}

func TestHint_SingleKind(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	logs := &countingFetcher{}
	tables := &countingFetcher{}
	_, err := c.Register(core.KindLog, logs)
	require.NoError(t, err)
	_, err = c.Register(core.KindTable, tables)
	require.NoError(t, err)

	outcomes, err := c.Hint(context.Background(), core.KindLog)
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, map[core.Kind]core.Outcome{core.KindLog: core.OutcomeStarted}, outcomes)
	assert.Equal(t, int32(1), logs.calls.Load())
	assert.Equal(t, int32(0), tables.calls.Load())
}

func TestHint_AllKinds(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	for _, k := range []core.Kind{core.KindTable, core.KindLog, core.KindNotification} {
		_, err := c.Register(k, &countingFetcher{})
		require.NoError(t, err)
	}

	outcomes, err := c.Hint(context.Background(), "")
	require.NoError(t, err)
	c.Wait()

	assert.Len(t, outcomes, 3)
	for k, o := range outcomes {
		assert.Equal(t, core.OutcomeStarted, o, "kind %s", k)
	}
}

func TestHint_IsNotABypass(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	f := &countingFetcher{}
	_, err := c.Register(core.KindNotification, f)
	require.NoError(t, err)

	c.NoteActivity()
	outcomes, err := c.Hint(context.Background(), core.KindNotification)
	require.NoError(t, err)

	assert.Equal(t, core.OutcomeSkippedPaused, outcomes[core.KindNotification])
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestHint_UnknownKind(t *testing.T) {
	c, _ := setupCoordinatorTest(t)

	_, err := c.Hint(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrUnknownKind)
}

func TestEvents_WindowChanges(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	events := c.Events()
	defer c.Unsubscribe(events)

	c.NoteActivity()
	c.ResumeNow()

	e1 := <-events
	noted, ok := e1.(*core.ActivityNoted)
	require.True(t, ok)
	assert.Equal(t, epoch.Add(3*time.Minute), noted.PausedUntil)

	e2 := <-events
	_, ok = e2.(*core.ResumedNow)
	assert.True(t, ok)
}

func TestEvents_RefresherEventsForwarded(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	_, err := c.Register(core.KindLog, core.FetcherFunc(func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("timeout")
	}))
	require.NoError(t, err)

	events := c.Events()
	defer c.Unsubscribe(events)

	_, _ = c.Refresh(context.Background(), core.KindLog)

	_, ok := (<-events).(*core.RefreshStarted)
	assert.True(t, ok)
	failed, ok := (<-events).(*core.RefreshFailed)
	require.True(t, ok)
	assert.Equal(t, core.KindLog, failed.Kind)
	assert.Contains(t, failed.Error.Error(), "timeout")
}

func TestEmit_DropsWhenFull(t *testing.T) {
	c, _ := setupCoordinatorTest(t, WithEventBuffer(1))
	events := c.Events()

	c.NoteActivity()
	c.NoteActivity()
	c.ResumeNow()

	assert.Len(t, events, 1)
}

func TestUnsubscribe(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	events := c.Events()
	c.Unsubscribe(events)

	c.NoteActivity()
	assert.Len(t, events, 0)
}

func TestStatus(t *testing.T) {
	c, _ := setupCoordinatorTest(t)
	_, err := c.Register(core.KindTable, &countingFetcher{})
	require.NoError(t, err)

	_, err = c.Refresh(context.Background(), core.KindTable)
	require.NoError(t, err)
	c.NoteActivity()

	status := c.Status()
	assert.True(t, status.Paused)
	require.NotNil(t, status.PausedUntil)
	assert.Equal(t, epoch.Add(3*time.Minute), *status.PausedUntil)
	assert.Equal(t, 3*time.Minute, status.Remaining)
	require.Len(t, status.Refreshers, 1)
	assert.Equal(t, core.KindTable, status.Refreshers[0].Kind)
	assert.Equal(t, int64(1), status.Refreshers[0].Succeeded)
	assert.Equal(t, core.StatePaused, status.Refreshers[0].State)
}

func TestStart_RunsSchedules(t *testing.T) {
	c, clk := setupCoordinatorTest(t)
	tables := &countingFetcher{}
	logs := &countingFetcher{}
	_, err := c.Register(core.KindTable, tables, refresher.WithSchedule(schedule.Every(10*time.Second)))
	require.NoError(t, err)
	_, err = c.Register(core.KindLog, logs, refresher.WithSchedule(schedule.Every(10*time.Second)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	// Give the second loop time to arm its timer too.
	time.Sleep(20 * time.Millisecond)

	clk.Step(10 * time.Second)
	require.Eventually(t, func() bool {
		return tables.calls.Load() == 1 && logs.calls.Load() == 1
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStart_PausedTicksSkipped(t *testing.T) {
	c, clk := setupCoordinatorTest(t)
	tables := &countingFetcher{}
	r, err := c.Register(core.KindTable, tables, refresher.WithSchedule(schedule.Every(10*time.Second)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Start(ctx) }()

	c.NoteActivity()
	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	clk.Step(10 * time.Second)

	require.Eventually(t, func() bool { return r.Stats().SkippedPaused == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), tables.calls.Load())
}

func TestStart_HintsDuringShutdown(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := New()
		f := &countingFetcher{}
		_, err := c.Register(core.KindLog, f)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- c.Start(ctx) }()

		stop := make(chan struct{})
		hinting := make(chan struct{})
		go func() {
			defer close(hinting)
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = c.Hint(context.Background(), "")
				}
			}
		}()

		cancel()
		require.ErrorIs(t, <-done, context.Canceled)

		outcomes, err := c.Hint(context.Background(), core.KindLog)
		require.NoError(t, err)
		assert.Equal(t, core.OutcomeSkippedClosed, outcomes[core.KindLog])

		close(stop)
		<-hinting
		c.Close()
	}
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	c := New(WithLogger(nil))
	t.Cleanup(c.Close)

	assert.NotPanics(t, func() {
		c.NoteActivity()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = c.Start(ctx)
	})
}
