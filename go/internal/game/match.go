package game

import (
	"github.com/mcdev12/penaltyarena/go/internal/events"
)

// recentWindow bounds how much per-slot action history the match keeps for
// the robot's adaptive strategy.
const recentWindow = 5

// Emission routes one event to one slot's outbound queue. Seq and At are
// zero here; the room stamps them when it enqueues.
type Emission struct {
	Slot  int
	Event events.Event
}

// Match is the two-phase-per-round penalty shootout state machine. The
// kicker role alternates by round parity: slot 0 kicks odd rounds, slot 1
// even ones.
type Match struct {
	rules   Rules
	phase   Phase
	round   int // 1-based
	score   [2]int
	kicks   [2]int // kicks taken per slot
	pending *Kick  // non-nil iff phase == PhaseAwaitingSave

	recentKicks [2][]Direction
	recentSaves [2][]Direction
}

// NewMatch starts a match in AWAITING_KICK with slot 0 kicking round 1.
func NewMatch(rules Rules) *Match {
	if rules.KicksPerSide <= 0 {
		rules = DefaultRules()
	}
	return &Match{rules: rules, phase: PhaseAwaitingKick, round: 1}
}

// Phase reports the current turn phase.
func (m *Match) Phase() Phase { return m.phase }

// Round reports the current 1-based round number.
func (m *Match) Round() int { return m.round }

// Score reports the running score by slot.
func (m *Match) Score() [2]int { return m.score }

// Over reports whether the match has terminated.
func (m *Match) Over() bool { return m.phase == PhaseMatchOver }

// KickerSlot is the slot whose turn it is to kick this round.
func (m *Match) KickerSlot() int { return (m.round - 1) % 2 }

// GoalkeeperSlot is the slot defending this round.
func (m *Match) GoalkeeperSlot() int { return 1 - m.KickerSlot() }

// TurnSlot is the slot the machine is waiting on, or -1 when the match is
// over.
func (m *Match) TurnSlot() int {
	switch m.phase {
	case PhaseAwaitingKick:
		return m.KickerSlot()
	case PhaseAwaitingSave:
		return m.GoalkeeperSlot()
	}
	return -1
}

// Winner is the leading slot index, or -1 while scores are level.
func (m *Match) Winner() int {
	switch {
	case m.score[0] > m.score[1]:
		return 0
	case m.score[1] > m.score[0]:
		return 1
	}
	return -1
}

// RecentKicks returns the slot's most recent kick lanes, oldest first.
func (m *Match) RecentKicks(slot int) []Direction {
	return append([]Direction(nil), m.recentKicks[slot]...)
}

// RecentSaves returns the slot's most recent dive lanes, oldest first.
func (m *Match) RecentSaves(slot int) []Direction {
	return append([]Direction(nil), m.recentSaves[slot]...)
}

// SubmitKick applies the current kicker's shot. Valid only in AWAITING_KICK
// from the kicker's slot; on success the machine holds the kick pending and
// notifies the goalkeeper.
func (m *Match) SubmitKick(slot int, kick Kick) ([]Emission, error) {
	if m.phase == PhaseMatchOver {
		return nil, ErrMatchOver
	}
	if m.phase != PhaseAwaitingKick || slot != m.KickerSlot() {
		return nil, ErrIllegalAction
	}

	k := kick
	m.pending = &k
	m.phase = PhaseAwaitingSave
	m.recentKicks[slot] = pushRecent(m.recentKicks[slot], kick.Direction)

	return []Emission{{
		Slot: m.GoalkeeperSlot(),
		Event: events.Event{
			Kind: events.KindKickSubmitted,
			Payload: events.KickSubmittedPayload{
				Round:     m.round,
				Direction: kick.Direction.String(),
				Power:     kick.Power.String(),
			},
		},
	}}, nil
}

// SubmitSave applies the goalkeeper's dive and resolves the round
// deterministically: the kick scores unless the dive lands within the save
// tolerance of the kick lane (a HIGH kick may beat even a matching dive when
// the rules say so). Roles swap and the next round arms, unless the match
// terminates.
func (m *Match) SubmitSave(slot int, save Save) ([]Emission, error) {
	if m.phase == PhaseMatchOver {
		return nil, ErrMatchOver
	}
	if m.phase != PhaseAwaitingSave || slot != m.GoalkeeperSlot() {
		return nil, ErrIllegalAction
	}

	kick := *m.pending
	kicker := m.KickerSlot()
	goal := m.resolve(kick, save)
	if goal {
		m.score[kicker]++
	}
	m.kicks[kicker]++
	m.pending = nil
	m.recentSaves[slot] = pushRecent(m.recentSaves[slot], save.Direction)

	emissions := []Emission{
		{
			Slot: kicker,
			Event: events.Event{
				Kind: events.KindSaveSubmitted,
				Payload: events.SaveSubmittedPayload{
					Round:     m.round,
					Direction: save.Direction.String(),
				},
			},
		},
	}
	result := events.RoundResultPayload{
		Round:         m.round,
		KickerSlot:    kicker,
		Goal:          goal,
		KickDirection: kick.Direction.String(),
		KickPower:     kick.Power.String(),
		SaveDirection: save.Direction.String(),
		Score:         m.score,
	}
	for s := 0; s < 2; s++ {
		emissions = append(emissions, Emission{
			Slot:  s,
			Event: events.Event{Kind: events.KindRoundResult, Payload: result},
		})
	}

	if m.finished() {
		m.phase = PhaseMatchOver
		final := events.MatchResultPayload{
			Score:      m.score,
			WinnerSlot: m.Winner(),
			Rounds:     m.round,
		}
		for s := 0; s < 2; s++ {
			emissions = append(emissions, Emission{
				Slot:  s,
				Event: events.Event{Kind: events.KindMatchResult, Payload: final},
			})
		}
		return emissions, nil
	}

	m.round++
	m.phase = PhaseAwaitingKick
	return emissions, nil
}

// resolve decides one kick-save pair. No randomness: lane distance and the
// power rule decide.
func (m *Match) resolve(kick Kick, save Save) bool {
	dist := int(save.Direction) - int(kick.Direction)
	if dist < 0 {
		dist = -dist
	}
	saved := dist <= m.rules.SaveTolerance
	if saved && kick.Power == PowerHigh && m.rules.HighBeatsMatchingSave {
		saved = false
	}
	return !saved
}

// finished checks the termination condition after a resolved round:
// regulation ends after KicksPerSide kicks each when scores differ, an
// unassailable lead ends it earlier, and level scores extend the match one
// kick-pair at a time.
func (m *Match) finished() bool {
	k0, k1 := m.kicks[0], m.kicks[1]
	reg := m.rules.KicksPerSide

	// Scores only compare when both sides have kicked equally often.
	if k0 == k1 && k0 >= reg && m.score[0] != m.score[1] {
		return true
	}

	// Early clinch inside regulation: the trailing side cannot equal the
	// leader with its remaining kicks.
	if k0 <= reg && k1 <= reg {
		rem0, rem1 := reg-k0, reg-k1
		if m.score[0] > m.score[1]+rem1 || m.score[1] > m.score[0]+rem0 {
			return true
		}
	}
	return false
}

func pushRecent(history []Direction, d Direction) []Direction {
	history = append(history, d)
	if len(history) > recentWindow {
		history = history[len(history)-recentWindow:]
	}
	return history
}
