// Package game holds the authoritative per-room match state machine. It is
// pure: no locks, no clock, no I/O. The room layer drives it under its own
// mutex and routes the emissions it returns.
package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIllegalAction flags a submission from the wrong slot or in the
	// wrong phase. State is left untouched.
	ErrIllegalAction = errors.New("illegal action for current phase or slot")
	// ErrMatchOver flags any submission after the match terminated.
	ErrMatchOver = errors.New("match already finished")
)

// Direction is a goal lane. The numeric values are lanes 0..2 so save
// tolerance can be expressed as a lane distance.
type Direction int

const (
	DirectionLeft Direction = iota
	DirectionCenter
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "LEFT"
	case DirectionCenter:
		return "CENTER"
	case DirectionRight:
		return "RIGHT"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection maps a wire direction name onto its lane.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEFT":
		return DirectionLeft, nil
	case "CENTER":
		return DirectionCenter, nil
	case "RIGHT":
		return DirectionRight, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Power is the kick strength.
type Power int

const (
	PowerLow Power = iota
	PowerMedium
	PowerHigh
)

func (p Power) String() string {
	switch p {
	case PowerLow:
		return "LOW"
	case PowerMedium:
		return "MEDIUM"
	case PowerHigh:
		return "HIGH"
	}
	return fmt.Sprintf("Power(%d)", int(p))
}

// ParsePower maps a wire power name onto its level.
func ParsePower(s string) (Power, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PowerLow, nil
	case "MEDIUM", "MED":
		return PowerMedium, nil
	case "HIGH":
		return PowerHigh, nil
	}
	return 0, fmt.Errorf("unknown power %q", s)
}

// Kick is the kicker's action for one round.
type Kick struct {
	Direction Direction
	Power     Power
}

// Save is the goalkeeper's action for one round.
type Save struct {
	Direction Direction
}

// Phase is the match turn phase. Round resolution is instantaneous: a save
// submission resolves the round and re-arms the next kick in one transition,
// so there is no resting resolved phase.
type Phase int

const (
	PhaseAwaitingKick Phase = iota
	PhaseAwaitingSave
	PhaseMatchOver
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingKick:
		return "AWAITING_KICK"
	case PhaseAwaitingSave:
		return "AWAITING_SAVE"
	case PhaseMatchOver:
		return "MATCH_OVER"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Rules are the game-design parameters of round resolution and termination.
// They are configuration, not protocol mechanics.
type Rules struct {
	// KicksPerSide is the regulation length: each slot takes this many
	// kicks before sudden death can begin.
	KicksPerSide int `yaml:"kicks_per_side"`
	// SaveTolerance is the maximum lane distance at which a dive still
	// stops the ball. Zero means the save must match the kick lane.
	SaveTolerance int `yaml:"save_tolerance"`
	// HighBeatsMatchingSave lets a HIGH-power kick score even against a
	// dive within tolerance.
	HighBeatsMatchingSave bool `yaml:"high_beats_matching_save"`
}

// DefaultRules returns the parameters the reference client was tuned
// against.
func DefaultRules() Rules {
	return Rules{KicksPerSide: 5, SaveTolerance: 0, HighBeatsMatchingSave: false}
}
