package live

import "pairchess/internal/domain"

// EventKind names the two realtime signals subscribers receive: a full-record
// push when the game row changes, and an append notification for each new
// move-log row.
type EventKind string

const (
	EventGameUpdated  EventKind = "game_updated"
	EventMoveAppended EventKind = "move_appended"
)

// Event is the JSON payload published on a game's channel. Exactly one of
// Game or Move is set, matching Kind.
type Event struct {
	Kind EventKind    `json:"kind"`
	Game *domain.Game `json:"game,omitempty"`
	Move *domain.Move `json:"move,omitempty"`
}
