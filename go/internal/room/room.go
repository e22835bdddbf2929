// Package room owns the matchmaking rooms: slot assignment, per-slot event
// queues with acknowledgment-driven delivery, pairing and robot timers, and the
// inactivity sweep. All room state is process-local and dies with the
// registry.
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/penaltyarena/go/internal/events"
	"github.com/mcdev12/penaltyarena/go/internal/game"
)

var (
	// ErrRegistryFull means the concurrent-room ceiling is reached; the
	// caller should retry later.
	ErrRegistryFull = errors.New("registry full")
	// ErrRoomNotFound means the room id is unknown or already expired.
	ErrRoomNotFound = errors.New("room not found")
)

// SlotKind is what occupies one side of a room.
type SlotKind int

const (
	SlotEmpty SlotKind = iota
	SlotHuman
	SlotRobot
)

func (k SlotKind) String() string {
	switch k {
	case SlotEmpty:
		return "empty"
	case SlotHuman:
		return "human"
	case SlotRobot:
		return "robot"
	}
	return "unknown"
}

// Opponent-kind hints returned by Join.
const (
	OpponentNone  = "none"
	OpponentHuman = "human"
	OpponentRobot = "robot"
)

// Phase is the room lifecycle state.
type Phase int

const (
	RoomWaiting Phase = iota
	RoomActive
	RoomFinished
	RoomExpired
)

func (p Phase) String() string {
	switch p {
	case RoomWaiting:
		return "WAITING"
	case RoomActive:
		return "ACTIVE"
	case RoomFinished:
		return "FINISHED"
	case RoomExpired:
		return "EXPIRED"
	}
	return "UNKNOWN"
}

// slot is one side of a room: its occupant and its outbound event queue.
// queue entries are strictly increasing in Seq; release is driven by the
// client's lastSeen, which acknowledges everything at or below it.
type slot struct {
	kind  SlotKind
	queue []events.Event
}

// Room is one matchmaking/game session. Every mutable field is guarded by
// mu; the registry never touches room state without it. Timer callbacks
// re-acquire mu and revalidate phase before acting, so a timer that lost the
// race against lifecycle transitions is a no-op.
type Room struct {
	id string

	mu         sync.Mutex
	phase      Phase
	slots      [2]slot
	match      *game.Match
	seq        uint64
	createdAt  time.Time
	lastActive time.Time
	finishedAt time.Time

	pairingTimer clockwork.Timer
	robotTimer   clockwork.Timer
	graceTimer   clockwork.Timer
	robotPending bool
}

func newRoom(id string, now time.Time) *Room {
	r := &Room{
		id:         id,
		phase:      RoomWaiting,
		createdAt:  now,
		lastActive: now,
	}
	r.slots[0].kind = SlotHuman
	return r
}

// ID returns the room's opaque token.
func (r *Room) ID() string { return r.id }

// Phase returns the current lifecycle state.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// enqueue appends one event to a slot's queue, stamping the next per-room
// sequence number. Caller holds r.mu.
func (r *Room) enqueue(now time.Time, slotIdx int, kind events.Kind, payload any) {
	r.seq++
	r.slots[slotIdx].queue = append(r.slots[slotIdx].queue, events.Event{
		Seq:     r.seq,
		Kind:    kind,
		At:      now,
		Payload: payload,
	})
}

// applyEmissions routes state-machine emissions into slot queues. Caller
// holds r.mu.
func (r *Room) applyEmissions(now time.Time, ems []game.Emission) {
	for _, em := range ems {
		r.enqueue(now, em.Slot, em.Event.Kind, em.Event.Payload)
	}
}

// drain returns the slot's events past lastSeen. Entries at or below
// lastSeen are client-confirmed and released; everything after stays queued
// for re-delivery until a later poll confirms it. Caller holds r.mu.
func (r *Room) drain(slotIdx int, lastSeen uint64) []events.Event {
	s := &r.slots[slotIdx]
	i := 0
	for i < len(s.queue) && s.queue[i].Seq <= lastSeen {
		i++
	}
	s.queue = s.queue[i:]

	out := make([]events.Event, len(s.queue))
	copy(out, s.queue)
	return out
}

// stopTimersLocked cancels every pending deferred task. Caller holds r.mu.
func (r *Room) stopTimersLocked() {
	if r.pairingTimer != nil {
		r.pairingTimer.Stop()
		r.pairingTimer = nil
	}
	if r.robotTimer != nil {
		r.robotTimer.Stop()
		r.robotTimer = nil
	}
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	r.robotPending = false
}
