// Package playback provides the stories playback state machine and progress clock.
package playback

// State represents the playback lifecycle state.
type State int

const (
	StateIdle         State = iota // Created or cancelled, not presenting
	StateEntering                  // Started, waiting out the settle delay
	StatePlaying                   // Clock running, progress advancing
	StatePausedByHold              // Paused by a held press, resumable
	StateBuffering                 // Media stalled, progress frozen
	StateError                     // External failure, terminal except Cancel
	StateDismissing                // End of content or dismissed, terminal except Cancel
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEntering:
		return "entering"
	case StatePlaying:
		return "playing"
	case StatePausedByHold:
		return "paused_by_hold"
	case StateBuffering:
		return "buffering"
	case StateError:
		return "error"
	case StateDismissing:
		return "dismissing"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state only exits via Cancel.
func (s State) Terminal() bool {
	return s == StateError || s == StateDismissing
}
