// Package events defines the event vocabulary shared between the match state
// machine, the room registry and the polling gateway.
package events

import "time"

// Kind tags an event variant.
type Kind string

const (
	KindOpponentJoined Kind = "OPPONENT_JOINED"
	KindKickSubmitted  Kind = "KICK_SUBMITTED"
	KindSaveSubmitted  Kind = "SAVE_SUBMITTED"
	KindRoundResult    Kind = "ROUND_RESULT"
	KindMatchResult    Kind = "MATCH_RESULT"
	KindOpponentLeft   Kind = "OPPONENT_LEFT"
)

// Event is one entry in a slot's outbound queue. Seq is assigned by the room
// from a per-room counter, so ordering is total within a room; At is stamped
// from the room's clock at enqueue time.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}
