package events

// Event payload types. Directions and powers travel as their wire names
// ("LEFT", "HIGH", ...) so this package stays free of game imports.

// OpponentJoinedPayload is delivered to both slots when a room fills.
type OpponentJoinedPayload struct {
	Slot string `json:"slot_kind"` // "human" or "robot"
}

// KickSubmittedPayload is delivered to the goalkeeper when the kicker shoots.
type KickSubmittedPayload struct {
	Round     int    `json:"round"`
	Direction string `json:"direction"`
	Power     string `json:"power"`
}

// SaveSubmittedPayload is delivered to the kicker when the goalkeeper dives.
type SaveSubmittedPayload struct {
	Round     int    `json:"round"`
	Direction string `json:"direction"`
}

// RoundResultPayload is delivered to both slots once a kick-save pair
// resolves.
type RoundResultPayload struct {
	Round         int    `json:"round"`
	KickerSlot    int    `json:"kicker_slot"`
	Goal          bool   `json:"goal"`
	KickDirection string `json:"kick_direction"`
	KickPower     string `json:"kick_power"`
	SaveDirection string `json:"save_direction"`
	Score         [2]int `json:"score"`
}

// MatchResultPayload is delivered to both slots when the match terminates.
type MatchResultPayload struct {
	Score      [2]int `json:"score"`
	WinnerSlot int    `json:"winner_slot"`
	Rounds     int    `json:"rounds"`
}

// OpponentLeftPayload is delivered to the remaining human when the other
// slot vacates.
type OpponentLeftPayload struct {
	Slot int `json:"slot"`
}
