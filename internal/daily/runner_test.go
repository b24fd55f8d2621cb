package daily

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jumpClock moves straight to every deadline it is asked to wait for.
type jumpClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *jumpClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *jumpClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestRunnerFiresOncePerDay(t *testing.T) {
	loc := kolkata(t)
	clk := &jumpClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, loc)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var days []string
	var fired []time.Time
	job := JobFunc(func(_ context.Context, day time.Time) {
		days = append(days, day.Format("2006-01-02"))
		fired = append(fired, clk.Now())
		if len(days) == 3 {
			cancel()
		}
	})

	err := NewRunner(job, clk, loc, 30*time.Minute, nil).RunForever(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"2024-03-11", "2024-03-12", "2024-03-13"}, days)
	for _, at := range fired {
		assert.Equal(t, 0, at.In(loc).Hour())
		assert.Equal(t, 30, at.In(loc).Minute())
	}
}

func TestRunnerSurvivesPanickingJob(t *testing.T) {
	loc := kolkata(t)
	clk := &jumpClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, loc)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	job := JobFunc(func(context.Context, time.Time) {
		calls++
		if calls == 2 {
			cancel()
			return
		}
		panic("boom")
	})

	err := NewRunner(job, clk, loc, 0, nil).RunForever(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestRunnerStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := JobFunc(func(context.Context, time.Time) { t.Fatal("job must not run") })
	err := NewRunner(job, RealClock(), time.UTC, 0, nil).RunForever(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// readyClock returns an already-fired timer, so a cancelled context and the timer
// are both ready when the runner selects.
type readyClock struct{ now time.Time }

func (c readyClock) Now() time.Time { return c.now }

func (c readyClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestRunnerDoesNotFireAfterCancel(t *testing.T) {
	clk := readyClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fired := false
		job := JobFunc(func(context.Context, time.Time) { fired = true })

		err := NewRunner(job, clk, time.UTC, 0, nil).RunForever(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, fired, "iteration %d fired with a cancelled context", i)
	}
}
