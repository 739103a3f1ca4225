// Package events carries structured game events from the world to whoever
// is listening: connected sessions, the scrollback journal, loggers.
package events

// Type classifies events for subscribers that filter (scrollback keeps
// speech and movement, sessions render everything as text).
type Type int

const (
	EvText       Type = iota // Plain game text
	EvSay                    // Speech in a room
	EvMove                   // Arrive/depart
	EvEnter                  // Player entered the game
	EvDepart                 // Player left the game
	EvRoom                   // Room description
	EvSystem                 // Server notices
)

// String returns a human-readable name for the event type.
func (t Type) String() string {
	switch t {
	case EvText:
		return "text"
	case EvSay:
		return "say"
	case EvMove:
		return "move"
	case EvEnter:
		return "enter"
	case EvDepart:
		return "depart"
	case EvRoom:
		return "room"
	case EvSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Event is one structured game event. Player is the recipient character
// name; Source is the character that generated it; Room is the room context
// where one applies. Text is the rendered form sessions deliver.
type Event struct {
	Type   Type
	Player string
	Source string
	Room   string
	Text   string
}
