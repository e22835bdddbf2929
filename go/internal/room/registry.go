package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/penaltyarena/go/internal/events"
	"github.com/mcdev12/penaltyarena/go/internal/game"
	"github.com/mcdev12/penaltyarena/go/internal/robot"
)

// Config holds the registry's matchmaking, pacing and expiry knobs.
type Config struct {
	// MaxRooms caps live rooms; Join fails with ErrRegistryFull past it.
	MaxRooms int
	// PairingTimeout is how long a lone human waits before a robot fills
	// the other slot.
	PairingTimeout time.Duration
	// LeaveGrace delays the ACTIVE -> FINISHED transition after a player
	// leaves, tolerating a brief disconnect race.
	LeaveGrace time.Duration
	// IdleExpiry expires any room with no activity for this long.
	IdleExpiry time.Duration
	// FinishedExpiry expires FINISHED rooms sooner, once clients had time
	// to drain final messages.
	FinishedExpiry time.Duration
	// SweepEvery is the expiry scan interval.
	SweepEvery time.Duration

	Rules game.Rules

	// RobotMinThink/RobotMaxThink bound the robot's artificial response
	// latency.
	RobotMinThink time.Duration
	RobotMaxThink time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRooms:       1024,
		PairingTimeout: 10 * time.Second,
		LeaveGrace:     5 * time.Second,
		IdleExpiry:     2 * time.Minute,
		FinishedExpiry: 30 * time.Second,
		SweepEvery:     10 * time.Second,
		Rules:          game.DefaultRules(),
		RobotMinThink:  900 * time.Millisecond,
		RobotMaxThink:  2600 * time.Millisecond,
	}
}

// Registry is the process-wide room table. It starts empty, is passed
// explicitly to the gateway, and drops everything on Close. The registry
// mutex only guards the table and the waiting list; per-room state is always
// mutated under the room's own lock, never while holding the registry lock
// beyond lookup/insert.
type Registry struct {
	cfg   Config
	clock clockwork.Clock
	strat robot.Strategy

	mu      sync.RWMutex
	rooms   map[string]*Room
	waiting []*Room // WAITING rooms in creation order; entries revalidated on pop

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRegistry creates an empty registry and starts its sweep loop.
func NewRegistry(cfg Config, clock clockwork.Clock, strat robot.Strategy) *Registry {
	reg := &Registry{
		cfg:   cfg,
		clock: clock,
		strat: strat,
		rooms: make(map[string]*Room),
		done:  make(chan struct{}),
	}
	reg.wg.Add(1)
	go reg.sweepLoop()
	return reg
}

// Close stops the sweeper and drops all rooms.
func (reg *Registry) Close() {
	reg.closeOnce.Do(func() {
		close(reg.done)
		reg.wg.Wait()

		reg.mu.Lock()
		rooms := reg.rooms
		reg.rooms = make(map[string]*Room)
		reg.waiting = nil
		reg.mu.Unlock()

		for _, r := range rooms {
			r.mu.Lock()
			reg.expireLocked(r)
			r.mu.Unlock()
		}
		log.Info().Int("rooms_dropped", len(rooms)).Msg("registry closed")
	})
}

// RoomCount reports the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Join places the caller into a room: into the free slot of a WAITING room
// when one exists, otherwise into slot 0 of a fresh room whose pairing timer
// guarantees an opponent (robot if need be) within PairingTimeout.
func (reg *Registry) Join() (roomID string, slotIdx int, opponent string, err error) {
	for {
		reg.mu.Lock()
		var r *Room
		if len(reg.waiting) > 0 {
			r = reg.waiting[0]
			reg.waiting = reg.waiting[1:]
		}
		if r == nil {
			if len(reg.rooms) >= reg.cfg.MaxRooms {
				reg.mu.Unlock()
				return "", 0, "", ErrRegistryFull
			}
			r = newRoom(uuid.NewString(), reg.clock.Now())
			reg.rooms[r.id] = r
			reg.waiting = append(reg.waiting, r)
			reg.mu.Unlock()

			r.mu.Lock()
			if r.phase == RoomWaiting && r.pairingTimer == nil {
				r.pairingTimer = reg.clock.AfterFunc(reg.cfg.PairingTimeout, func() {
					reg.fillWithRobot(r)
				})
			}
			r.mu.Unlock()

			log.Info().Str("room_id", r.id).Msg("room created, waiting for opponent")
			return r.id, 0, OpponentNone, nil
		}
		reg.mu.Unlock()

		r.mu.Lock()
		if r.phase != RoomWaiting || r.slots[1].kind != SlotEmpty {
			// stale waiting entry (expired or already filled); try again
			r.mu.Unlock()
			continue
		}
		r.slots[1].kind = SlotHuman
		reg.activateLocked(r)
		r.mu.Unlock()

		log.Info().Str("room_id", r.id).Msg("second human joined, match active")
		return r.id, 1, OpponentHuman, nil
	}
}

// fillWithRobot is the pairing-timeout task: no second human arrived, so a
// robot takes slot 1. No-op if the room moved on.
func (reg *Registry) fillWithRobot(r *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != RoomWaiting || r.slots[1].kind != SlotEmpty {
		return
	}
	r.slots[1].kind = SlotRobot
	reg.activateLocked(r)
	log.Info().Str("room_id", r.id).Msg("pairing timeout, robot fills slot 1")
}

// activateLocked fills in the match and tells each slot what joined
// opposite them. Caller holds r.mu with both slots occupied.
func (reg *Registry) activateLocked(r *Room) {
	if r.pairingTimer != nil {
		r.pairingTimer.Stop()
		r.pairingTimer = nil
	}
	now := reg.clock.Now()
	r.phase = RoomActive
	r.match = game.NewMatch(reg.cfg.Rules)
	r.lastActive = now
	r.enqueue(now, 0, events.KindOpponentJoined, events.OpponentJoinedPayload{Slot: r.slots[1].kind.String()})
	r.enqueue(now, 1, events.KindOpponentJoined, events.OpponentJoinedPayload{Slot: r.slots[0].kind.String()})
	reg.scheduleRobotLocked(r)
}

// Leave vacates a slot. A remaining human is notified and the room finishes
// after the grace window; otherwise the room finishes immediately.
func (reg *Registry) Leave(roomID string, slotIdx int) error {
	r, err := reg.lookup(roomID)
	if err != nil {
		return err
	}
	if slotIdx != 0 && slotIdx != 1 {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == RoomFinished || r.phase == RoomExpired {
		return nil
	}
	r.slots[slotIdx].kind = SlotEmpty
	r.lastActive = reg.clock.Now()

	other := 1 - slotIdx
	if r.phase == RoomActive && r.slots[other].kind == SlotHuman {
		r.enqueue(reg.clock.Now(), other, events.KindOpponentLeft, events.OpponentLeftPayload{Slot: slotIdx})
		if r.graceTimer == nil {
			r.graceTimer = reg.clock.AfterFunc(reg.cfg.LeaveGrace, func() {
				reg.finishAfterGrace(r)
			})
		}
		log.Info().Str("room_id", r.id).Int("slot", slotIdx).Msg("player left, grace timer started")
		return nil
	}

	reg.finishLocked(r)
	log.Info().Str("room_id", r.id).Int("slot", slotIdx).Msg("player left, room finished")
	return nil
}

func (reg *Registry) finishAfterGrace(r *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != RoomActive {
		return
	}
	reg.finishLocked(r)
	log.Info().Str("room_id", r.id).Msg("grace elapsed, room finished")
}

// SubmitKick forwards a kick to the room's match. Resulting events are in
// the slot queues before this returns.
func (reg *Registry) SubmitKick(roomID string, slotIdx int, kick game.Kick) error {
	return reg.submit(roomID, slotIdx, func(m *game.Match) ([]game.Emission, error) {
		return m.SubmitKick(slotIdx, kick)
	})
}

// SubmitSave forwards a dive to the room's match.
func (reg *Registry) SubmitSave(roomID string, slotIdx int, save game.Save) error {
	return reg.submit(roomID, slotIdx, func(m *game.Match) ([]game.Emission, error) {
		return m.SubmitSave(slotIdx, save)
	})
}

func (reg *Registry) submit(roomID string, slotIdx int, apply func(*game.Match) ([]game.Emission, error)) error {
	r, err := reg.lookup(roomID)
	if err != nil {
		return err
	}
	if slotIdx != 0 && slotIdx != 1 {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.phase {
	case RoomWaiting:
		// no opponent yet, nothing to act on
		return game.ErrIllegalAction
	case RoomFinished, RoomExpired:
		return game.ErrMatchOver
	}

	ems, err := apply(r.match)
	if err != nil {
		return err
	}
	now := reg.clock.Now()
	r.applyEmissions(now, ems)
	r.lastActive = now

	if r.match.Over() {
		score := r.match.Score()
		reg.finishLocked(r)
		log.Info().
			Str("room_id", r.id).
			Ints("score", score[:]).
			Msg("match over")
		return nil
	}
	reg.scheduleRobotLocked(r)
	return nil
}

// Poll returns the slot's events with sequence numbers past lastSeen and
// releases everything at or below it. Safe to repeat with the same lastSeen:
// the same events come back until the client acknowledges them by polling
// past them.
func (reg *Registry) Poll(roomID string, slotIdx int, lastSeen uint64) ([]events.Event, error) {
	r, err := reg.lookup(roomID)
	if err != nil {
		return nil, err
	}
	if slotIdx != 0 && slotIdx != 1 {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == RoomExpired {
		return nil, ErrRoomNotFound
	}
	r.lastActive = reg.clock.Now()
	return r.drain(slotIdx, lastSeen), nil
}

// scheduleRobotLocked arms the robot's think timer when the turn belongs to
// a robot slot. The timer must not be armed twice for one turn, and its task
// revalidates the room before acting. Caller holds r.mu.
func (reg *Registry) scheduleRobotLocked(r *Room) {
	if r.robotPending || r.match == nil || r.match.Over() {
		return
	}
	turn := r.match.TurnSlot()
	if turn < 0 || r.slots[turn].kind != SlotRobot {
		return
	}
	delay := reg.strat.ThinkDelay(reg.cfg.RobotMinThink, reg.cfg.RobotMaxThink)
	r.robotPending = true
	r.robotTimer = reg.clock.AfterFunc(delay, func() {
		reg.robotAct(r)
	})
	log.Debug().
		Str("room_id", r.id).
		Int("slot", turn).
		Dur("think", delay).
		Msg("robot action scheduled")
}

// robotAct is the deferred robot task. It holds the room lock only while
// applying the chosen action, never while "thinking".
func (reg *Registry) robotAct(r *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.robotPending = false

	if r.phase != RoomActive || r.match == nil || r.match.Over() {
		return
	}
	turn := r.match.TurnSlot()
	if turn < 0 || r.slots[turn].kind != SlotRobot {
		// internal invariant violation: the timer outlived the turn it
		// was armed for
		log.Warn().Str("room_id", r.id).Str("phase", r.match.Phase().String()).Msg("robot timer fired out of turn")
		return
	}

	opp := 1 - turn
	sit := robot.Situation{
		Round:         r.match.Round(),
		Score:         r.match.Score(),
		RobotSlot:     turn,
		OpponentKicks: r.match.RecentKicks(opp),
		OpponentSaves: r.match.RecentSaves(opp),
	}

	var ems []game.Emission
	var err error
	if r.match.Phase() == game.PhaseAwaitingKick {
		ems, err = r.match.SubmitKick(turn, reg.strat.Kick(sit))
	} else {
		ems, err = r.match.SubmitSave(turn, reg.strat.Save(sit))
	}
	if err != nil {
		// defensive: never propagates past this room
		log.Warn().Err(err).Str("room_id", r.id).Msg("robot action rejected by state machine")
		return
	}

	now := reg.clock.Now()
	r.applyEmissions(now, ems)
	r.lastActive = now

	if r.match.Over() {
		score := r.match.Score()
		reg.finishLocked(r)
		log.Info().
			Str("room_id", r.id).
			Ints("score", score[:]).
			Msg("match over")
		return
	}
	reg.scheduleRobotLocked(r)
}

// finishLocked moves the room to FINISHED and cancels pending tasks. Caller
// holds r.mu.
func (reg *Registry) finishLocked(r *Room) {
	if r.phase == RoomFinished || r.phase == RoomExpired {
		return
	}
	r.phase = RoomFinished
	r.finishedAt = reg.clock.Now()
	r.stopTimersLocked()
}

// expireLocked releases the room's memory. Caller holds r.mu; the registry
// table entry is removed separately.
func (reg *Registry) expireLocked(r *Room) {
	r.phase = RoomExpired
	r.stopTimersLocked()
	r.slots[0].queue = nil
	r.slots[1].queue = nil
	r.match = nil
}

func (reg *Registry) lookup(roomID string) (*Room, error) {
	reg.mu.RLock()
	r := reg.rooms[roomID]
	reg.mu.RUnlock()
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (reg *Registry) sweepLoop() {
	defer reg.wg.Done()
	ticker := reg.clock.NewTicker(reg.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-reg.done:
			return
		case <-ticker.Chan():
			reg.sweepOnce()
		}
	}
}

// sweepOnce expires rooms idle past IdleExpiry, or FINISHED past
// FinishedExpiry, and removes them from the table.
func (reg *Registry) sweepOnce() {
	now := reg.clock.Now()

	reg.mu.RLock()
	candidates := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		candidates = append(candidates, r)
	}
	reg.mu.RUnlock()

	var expired []string
	for _, r := range candidates {
		r.mu.Lock()
		stale := now.Sub(r.lastActive) > reg.cfg.IdleExpiry ||
			(r.phase == RoomFinished && now.Sub(r.finishedAt) > reg.cfg.FinishedExpiry)
		if stale && r.phase != RoomExpired {
			reg.expireLocked(r)
			expired = append(expired, r.id)
		}
		r.mu.Unlock()
	}
	if len(expired) == 0 {
		return
	}

	gone := make(map[string]bool, len(expired))
	for _, id := range expired {
		gone[id] = true
	}
	reg.mu.Lock()
	for _, id := range expired {
		delete(reg.rooms, id)
	}
	kept := reg.waiting[:0]
	for _, r := range reg.waiting {
		if !gone[r.id] {
			kept = append(kept, r)
		}
	}
	reg.waiting = kept
	reg.mu.Unlock()

	log.Info().Int("expired", len(expired)).Msg("swept expired rooms")
}
