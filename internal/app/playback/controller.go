package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Construction errors. Public operations never return errors: a call made
// outside its guard is a silent no-op (the gesture layer must not need to
// pre-validate state before calling).
var (
	ErrNoItems         = errors.New("item count must be at least 1")
	ErrInvalidDuration = errors.New("item duration must be positive")
)

const (
	defaultTickPeriod  = 10 * time.Millisecond
	defaultSettleDelay = 100 * time.Millisecond
)

// Config holds controller configuration. ItemCount and ItemDuration are
// fixed for the lifetime of the controller; every item shares one duration.
type Config struct {
	ItemCount    int           // Number of items in the sequence
	ItemDuration time.Duration // Display time per item
	TickPeriod   time.Duration // Progress tick period (default 10ms)
	SettleDelay  time.Duration // Delay between Start and the clock running (default 100ms)
	Loop         bool          // Wrap to item 0 at the end instead of dismissing
}

// Status is a consistent snapshot of the controller's observable fields.
type Status struct {
	State    State
	Index    int
	Progress float64 // Fraction within the current item, [0,1]
	Overall  float64 // Index + fraction
}

// Controller reconciles the periodic tick, user gestures and programmatic
// navigation into one serialized notion of which item is showing and how far
// through it is. Every public operation and every timer callback takes the
// same mutex, so gesture callbacks can never interleave with a tick.
type Controller struct {
	mu sync.Mutex

	cfg Config

	state           State
	currentIndex    int
	elapsedInItem   time.Duration // Accumulated before the current running segment
	clockAnchor     time.Time     // Start of the running segment; zero unless playing
	pendingAdvances int           // Queued forward advances, drained on the tick

	settleCancel func() // Cancel for the pending entering->playing transition
	tickCancel   func() // Cancel for the recurring tick goroutine

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a controller for a sequence of cfg.ItemCount items.
func New(cfg Config) (*Controller, error) {
	if cfg.ItemCount < 1 {
		return nil, ErrNoItems
	}
	if cfg.ItemDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = defaultTickPeriod
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:     cfg,
		state:   StateIdle,
		eventCh: make(chan Event, 64),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Events returns the event channel. Events are sent non-blocking; when the
// consumer falls behind, progress updates are dropped rather than queued.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Start begins the session. Only valid from idle; the clock starts running
// after the settle delay elapses.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return
	}

	c.state = StateEntering
	c.sendEventLocked(EventStateChanged)
	c.startSettleTimerLocked()
}

// Pause freezes the clock. Only valid while playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}

	c.foldElapsedLocked()
	c.stopTickerLocked()
	c.state = StatePausedByHold
	c.sendEventLocked(EventStateChanged)
}

// Resume restarts the clock after a hold. Only valid from pausedByHold;
// buffering and error have their own explicit exits so an accidental resume
// cannot mask a different failure mode.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePausedByHold {
		return
	}

	c.clockAnchor = time.Now()
	c.state = StatePlaying
	c.startTickerLocked()
	c.sendEventLocked(EventStateChanged)
}

// EnterBuffering freezes progress while the media stalls. The tick keeps
// running but does nothing until ExitBuffering.
func (c *Controller) EnterBuffering() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}

	c.foldElapsedLocked()
	c.state = StateBuffering
	c.sendEventLocked(EventStateChanged)
}

// ExitBuffering resumes progress after a stall.
func (c *Controller) ExitBuffering() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateBuffering {
		return
	}

	c.clockAnchor = time.Now()
	c.state = StatePlaying
	c.sendEventLocked(EventStateChanged)
}

// EnterDismissing ends the session. Terminal until Cancel.
func (c *Controller) EnterDismissing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateEntering, StatePlaying, StatePausedByHold, StateBuffering:
		c.enterDismissingLocked()
	}
}

// EnterError records an external failure. Terminal until Cancel; recovery
// policy belongs to the caller.
func (c *Controller) EnterError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateError {
		return
	}

	c.stopTimersLocked()
	c.clockAnchor = time.Time{}
	c.state = StateError
	c.sendEventLocked(EventStateChanged)
}

// Cancel stops the session from any state and returns to idle. Pending
// timers are stopped deterministically so no stale callback can mutate the
// session afterwards. Other session fields are left as-is; a fresh controller
// is expected for replay.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}

	c.stopTimersLocked()
	c.clockAnchor = time.Time{}
	c.state = StateIdle
	c.sendEventLocked(EventStateChanged)
}

// Advance moves by a signed number of items. Positive steps are queued and
// drained on the tick so rapid forward taps cannot race the clock's own
// end-of-item trigger; negative steps are applied synchronously because the
// clock only ever pushes forward.
func (c *Controller) Advance(by int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}

	if by > 0 {
		c.pendingAdvances += by
		return
	}
	for i := 0; i < -by; i++ {
		c.previousStoryLocked()
	}
}

// JumpToStory moves directly to the given item and resets its clock.
// Out-of-range targets are a no-op. A jump supersedes queued forward
// advances: the queue is cleared without effect.
func (c *Controller) JumpToStory(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	if index < 0 || index >= c.cfg.ItemCount {
		return
	}

	c.pendingAdvances = 0
	c.setIndexLocked(index)
}

// NextStory advances one item. At the last item the session ends (or wraps
// to item 0 when Loop is configured).
func (c *Controller) NextStory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	c.nextStoryLocked()
}

// PreviousStory moves back one item. No-op at item 0; never wraps.
func (c *Controller) PreviousStory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	c.previousStoryLocked()
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentIndex returns the index of the item currently showing.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

// ItemCount returns the fixed number of items in the sequence.
func (c *Controller) ItemCount() int {
	return c.cfg.ItemCount
}

// ProgressWithinItem returns the progress fraction of the current item.
func (c *Controller) ProgressWithinItem() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fractionLocked()
}

// OverallProgress returns currentIndex + fraction, a single continuous
// progress value across all items.
func (c *Controller) OverallProgress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.currentIndex) + c.fractionLocked()
}

// Status returns a consistent snapshot of all observable fields.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	frac := c.fractionLocked()
	return Status{
		State:    c.state,
		Index:    c.currentIndex,
		Progress: frac,
		Overall:  float64(c.currentIndex) + frac,
	}
}

// Close cancels the session and releases the controller's resources.
func (c *Controller) Close() {
	c.Cancel()
	c.cancel()
	close(c.eventCh)
}

// onTick runs once per tick period while the ticker goroutine is alive.
func (c *Controller) onTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}

	// Queued advances take the whole tick; progress computation resumes on
	// the next one. Each queued unit costs exactly one item step.
	if c.pendingAdvances > 0 {
		c.drainAdvancesLocked()
		return
	}

	frac := c.fractionLocked()
	c.sendEventLocked(EventProgress)
	if frac >= 1.0 {
		c.pendingAdvances++
	}
}

// onSettled runs when the settle delay elapses after Start.
func (c *Controller) onSettled() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleCancel = nil
	if c.state != StateEntering {
		return
	}

	c.elapsedInItem = 0
	c.clockAnchor = time.Now()
	c.state = StatePlaying
	c.startTickerLocked()
	c.sendEventLocked(EventStateChanged)
}

// nextStoryLocked is the single forward step primitive.
// Must be called with lock held.
func (c *Controller) nextStoryLocked() {
	if c.currentIndex >= c.cfg.ItemCount-1 {
		if c.cfg.Loop {
			c.setIndexLocked(0)
			return
		}
		c.enterDismissingLocked()
		return
	}
	c.setIndexLocked(c.currentIndex + 1)
}

// previousStoryLocked is the single backward step primitive.
// Must be called with lock held.
func (c *Controller) previousStoryLocked() {
	if c.currentIndex == 0 {
		return
	}
	c.setIndexLocked(c.currentIndex - 1)
}

// setIndexLocked changes the current item and resets its clock.
// Must be called with lock held.
func (c *Controller) setIndexLocked(index int) {
	c.currentIndex = index
	c.elapsedInItem = 0
	if c.state == StatePlaying {
		c.clockAnchor = time.Now()
	}
	c.sendEventLocked(EventIndexChanged)
}

// drainAdvancesLocked applies queued forward advances in order, one
// nextStory per queued unit. Must be called with lock held.
func (c *Controller) drainAdvancesLocked() {
	for c.pendingAdvances > 0 && c.state == StatePlaying {
		c.pendingAdvances--
		c.nextStoryLocked()
	}
	// A drain that dismissed the session leaves the rest of the queue moot.
	if c.state != StatePlaying {
		c.pendingAdvances = 0
	}
}

// enterDismissingLocked ends the session, leaving currentIndex unchanged.
// Must be called with lock held.
func (c *Controller) enterDismissingLocked() {
	c.stopTimersLocked()
	c.foldElapsedLocked()
	c.pendingAdvances = 0
	c.state = StateDismissing

	zlog.Debug().Msgf("playback: dismissing: index=%d items=%d", c.currentIndex, c.cfg.ItemCount)

	c.sendEventLocked(EventDismissed)
	c.sendEventLocked(EventStateChanged)
}

// foldElapsedLocked accumulates the running segment into elapsedInItem and
// clears the anchor. Clamped at the item duration so the published fraction
// never exceeds 1.0. Must be called with lock held.
func (c *Controller) foldElapsedLocked() {
	if !c.clockAnchor.IsZero() {
		c.elapsedInItem += time.Since(c.clockAnchor)
		c.clockAnchor = time.Time{}
	}
	if c.elapsedInItem > c.cfg.ItemDuration {
		c.elapsedInItem = c.cfg.ItemDuration
	}
}

// fractionLocked derives the current item's progress fraction.
// Must be called with lock held.
func (c *Controller) fractionLocked() float64 {
	total := c.elapsedInItem
	if c.state == StatePlaying && !c.clockAnchor.IsZero() {
		total += time.Since(c.clockAnchor)
	}

	frac := float64(total) / float64(c.cfg.ItemDuration)
	if frac > 1.0 {
		frac = 1.0
	}
	if frac < 0 {
		frac = 0
	}
	return frac
}

// stopTimersLocked stops the settle timer and the ticker.
// Must be called with lock held.
func (c *Controller) stopTimersLocked() {
	if c.settleCancel != nil {
		c.settleCancel()
		c.settleCancel = nil
	}
	c.stopTickerLocked()
}

// startSettleTimerLocked schedules the one-shot entering->playing transition.
// The timer is tied to the controller context so Cancel and Close invalidate
// it unconditionally. Must be called with lock held.
func (c *Controller) startSettleTimerLocked() {
	if c.settleCancel != nil {
		c.settleCancel()
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.settleCancel = cancel

	go func() {
		timer := time.NewTimer(c.cfg.SettleDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
			c.onSettled()
		}
	}()
}

// startTickerLocked starts the recurring tick goroutine if it is not already
// running. Must be called with lock held.
func (c *Controller) startTickerLocked() {
	if c.tickCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(c.cfg.TickPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.onTick()
			}
		}
	}()
}

// stopTickerLocked stops the tick goroutine. Must be called with lock held.
func (c *Controller) stopTickerLocked() {
	if c.tickCancel != nil {
		c.tickCancel()
		c.tickCancel = nil
	}
}

// sendEventLocked publishes an event without blocking. Must be called with
// lock held.
func (c *Controller) sendEventLocked(t EventType) {
	frac := c.fractionLocked()
	e := Event{
		Type:     t,
		State:    c.state,
		Index:    c.currentIndex,
		Progress: frac,
		Overall:  float64(c.currentIndex) + frac,
	}

	if c.ctx.Err() != nil {
		// Closed; the channel may already be gone.
		return
	}

	select {
	case c.eventCh <- e:
	default:
		// Consumer is behind; drop rather than block the owner context.
	}
}
