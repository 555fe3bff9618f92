package playback

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged EventType = iota // Lifecycle state changed
	EventIndexChanged                  // Current item changed (advance, jump)
	EventProgress                      // Progress fraction updated by a tick
	EventDismissed                     // End of content reached
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventIndexChanged:
		return "index_changed"
	case EventProgress:
		return "progress"
	case EventDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Event represents an observable change in the controller.
type Event struct {
	Type     EventType
	State    State
	Index    int     // Current item index
	Progress float64 // Fraction within the current item, [0,1]
	Overall  float64 // Index + fraction, continuous across items
}
