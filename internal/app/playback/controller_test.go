package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig returns a config with short timings suitable for tests.
func fastConfig(items int, duration time.Duration) Config {
	return Config{
		ItemCount:    items,
		ItemDuration: duration,
		TickPeriod:   5 * time.Millisecond,
		SettleDelay:  10 * time.Millisecond,
	}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 2*time.Second, 2*time.Millisecond, "expected state %s", want)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{ItemCount: 0, ItemDuration: time.Second})
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New(Config{ItemCount: 3, ItemDuration: 0})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	c, err := New(Config{ItemCount: 1, ItemDuration: time.Second})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, c.CurrentIndex())
}

func TestNextStory_WalksSequenceThenDismisses(t *testing.T) {
	for _, itemCount := range []int{2, 3, 7} {
		c, err := New(fastConfig(itemCount, time.Second))
		require.NoError(t, err)

		for i := 0; i < itemCount-1; i++ {
			c.NextStory()
		}
		assert.Equal(t, itemCount-1, c.CurrentIndex())

		c.NextStory()
		assert.Equal(t, StateDismissing, c.State())
		assert.Equal(t, itemCount-1, c.CurrentIndex(), "index unchanged on dismissal")

		// Terminal: further steps are no-ops.
		c.NextStory()
		c.PreviousStory()
		assert.Equal(t, itemCount-1, c.CurrentIndex())

		c.Close()
	}
}

func TestJumpToStory(t *testing.T) {
	c, err := New(fastConfig(5, time.Second))
	require.NoError(t, err)
	defer c.Close()

	for _, index := range []int{0, 2, 4} {
		c.JumpToStory(index)
		assert.Equal(t, index, c.CurrentIndex())
		assert.Equal(t, 0.0, c.ProgressWithinItem())
	}

	c.JumpToStory(2)
	for _, index := range []int{-1, 5, 100} {
		c.JumpToStory(index)
		assert.Equal(t, 2, c.CurrentIndex(), "out-of-range jump must be a no-op")
	}
}

func TestAdvance_Backward(t *testing.T) {
	c, err := New(fastConfig(5, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Advance(-1)
	assert.Equal(t, 0, c.CurrentIndex(), "backward at index 0 is a no-op")

	c.JumpToStory(2)
	c.Advance(-2)
	assert.Equal(t, 0, c.CurrentIndex())

	c.JumpToStory(2)
	c.Advance(-10)
	assert.Equal(t, 0, c.CurrentIndex(), "must clamp at 0, never go negative")
}

func TestLifecycle(t *testing.T) {
	c, err := New(fastConfig(4, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	assert.Equal(t, StateEntering, c.State(), "Start is synchronous up to entering")

	waitForState(t, c, StatePlaying)

	c.Pause()
	assert.Equal(t, StatePausedByHold, c.State())
	assert.Equal(t, 0, c.CurrentIndex())

	c.Resume()
	assert.Equal(t, StatePlaying, c.State())

	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
}

func TestStart_OnlyFromIdle(t *testing.T) {
	c, err := New(fastConfig(2, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)

	c.Start()
	assert.Equal(t, StatePlaying, c.State(), "Start while active is a no-op")
}

func TestPause_FreezesProgress(t *testing.T) {
	c, err := New(fastConfig(2, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)
	time.Sleep(50 * time.Millisecond)

	c.Pause()
	index := c.CurrentIndex()
	progress := c.ProgressWithinItem()
	assert.Greater(t, progress, 0.0)

	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, index, c.CurrentIndex())
	assert.Equal(t, progress, c.ProgressWithinItem(), "progress must not move while paused")
}

func TestAutoAdvance(t *testing.T) {
	c, err := New(fastConfig(4, 100*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	require.Eventually(t, func() bool {
		return c.CurrentIndex() >= 1
	}, 2*time.Second, 5*time.Millisecond, "item should advance on its own after the duration")
}

func TestAutoAdvance_DismissesAtEnd(t *testing.T) {
	c, err := New(fastConfig(2, 60*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StateDismissing)
	assert.Equal(t, 1, c.CurrentIndex())
}

func TestQueuedAdvances_DrainInOrder(t *testing.T) {
	c, err := New(fastConfig(10, 10*time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)

	c.Advance(1)
	c.Advance(1)
	c.Advance(1)

	require.Eventually(t, func() bool {
		return c.CurrentIndex() == 3
	}, 2*time.Second, 2*time.Millisecond, "three taps move exactly three items")
}

func TestJump_SupersedesQueuedAdvances(t *testing.T) {
	c, err := New(fastConfig(10, 10*time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)
	c.Pause()

	// Queued while paused: the tick is stopped, so nothing drains yet.
	c.Advance(5)
	c.JumpToStory(1)
	c.Resume()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, c.CurrentIndex(), "jump clears the pending queue")
}

func TestBuffering(t *testing.T) {
	c, err := New(fastConfig(2, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)
	time.Sleep(30 * time.Millisecond)

	c.EnterBuffering()
	assert.Equal(t, StateBuffering, c.State())
	progress := c.ProgressWithinItem()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, progress, c.ProgressWithinItem(), "progress frozen while buffering")

	// Resume is not a way out of buffering.
	c.Resume()
	assert.Equal(t, StateBuffering, c.State())

	c.ExitBuffering()
	assert.Equal(t, StatePlaying, c.State())
}

func TestError_TerminalExceptCancel(t *testing.T) {
	c, err := New(fastConfig(3, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)

	c.EnterError()
	assert.Equal(t, StateError, c.State())

	c.Resume()
	c.NextStory()
	c.JumpToStory(2)
	assert.Equal(t, StateError, c.State())
	assert.Equal(t, 0, c.CurrentIndex())

	c.Cancel()
	assert.Equal(t, StateIdle, c.State())
}

func TestCancel_StopsPendingSettle(t *testing.T) {
	cfg := fastConfig(2, time.Second)
	cfg.SettleDelay = 50 * time.Millisecond
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	c.Cancel()
	assert.Equal(t, StateIdle, c.State())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateIdle, c.State(), "cancelled settle timer must never fire")
}

func TestLastItemCompletion(t *testing.T) {
	c, err := New(fastConfig(5, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.JumpToStory(4)
	c.NextStory()
	assert.Equal(t, StateDismissing, c.State())
}

func TestLoop_WrapsInsteadOfDismissing(t *testing.T) {
	cfg := fastConfig(3, time.Second)
	cfg.Loop = true
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	c.JumpToStory(2)
	c.NextStory()
	assert.Equal(t, 0, c.CurrentIndex())
	assert.NotEqual(t, StateDismissing, c.State())
}

func TestRapidFire_IndexAlwaysValid(t *testing.T) {
	const itemCount = 5
	c, err := New(fastConfig(itemCount, 10*time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()
	waitForState(t, c, StatePlaying)

	for i := 0; i < 50; i++ {
		switch i % 4 {
		case 0:
			c.NextStory()
		case 1:
			c.PreviousStory()
		case 2:
			c.JumpToStory(i % (itemCount + 2)) // Includes out-of-range targets
		case 3:
			c.Advance(1 - 2*(i%2))
		}

		index := c.CurrentIndex()
		assert.GreaterOrEqual(t, index, 0)
		assert.Less(t, index, itemCount)
	}
}

func TestOverallProgress(t *testing.T) {
	c, err := New(fastConfig(4, time.Second))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 0.0, c.OverallProgress())

	c.JumpToStory(2)
	assert.Equal(t, 2.0, c.OverallProgress())

	status := c.Status()
	assert.Equal(t, 2, status.Index)
	assert.Equal(t, 2.0, status.Overall)
}

func TestEvents_StateChanges(t *testing.T) {
	c, err := New(fastConfig(2, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.Start()

	select {
	case e := <-c.Events():
		assert.Equal(t, EventStateChanged, e.Type)
		assert.Equal(t, StateEntering, e.State)
	case <-time.After(time.Second):
		t.Fatal("no event after Start")
	}
}

func TestEvents_IndexChanged(t *testing.T) {
	c, err := New(fastConfig(3, time.Second))
	require.NoError(t, err)
	defer c.Close()

	c.NextStory()

	select {
	case e := <-c.Events():
		assert.Equal(t, EventIndexChanged, e.Type)
		assert.Equal(t, 1, e.Index)
		assert.Equal(t, 1.0, e.Overall)
	case <-time.After(time.Second):
		t.Fatal("no event after NextStory")
	}
}
