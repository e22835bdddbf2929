// Package robot supplies the scripted opponent. A robot slot acts through
// the exact same state-machine interface as a human; only the room's timer
// layer knows the difference.
package robot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mcdev12/penaltyarena/go/internal/game"
)

// Situation is the slice of match state a strategy may look at. Histories
// are the opponent's, oldest first.
type Situation struct {
	Round         int
	Score         [2]int
	RobotSlot     int
	OpponentKicks []game.Direction
	OpponentSaves []game.Direction
}

// Strategy decides the robot's next action. Implementations must be safe
// for concurrent use; room timers from different rooms share one instance.
type Strategy interface {
	Kick(sit Situation) game.Kick
	Save(sit Situation) game.Save
	// ThinkDelay draws the artificial response latency for the next
	// action from [min, max].
	ThinkDelay(min, max time.Duration) time.Duration
}

// AdaptiveStrategy is a weighted random chooser that leans on the
// opponent's recent habits more and more as the match progresses: dives
// mirror the opponent's favourite kicking lane, kicks avoid the opponent's
// favourite diving lane. Stateless across matches; everything it adapts to
// arrives in the Situation.
type AdaptiveStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAdaptiveStrategy constructs a strategy with its own seeded source.
func NewAdaptiveStrategy() *AdaptiveStrategy {
	return &AdaptiveStrategy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// lanes the strategy weighs over.
var lanes = []game.Direction{game.DirectionLeft, game.DirectionCenter, game.DirectionRight}

// bias grows with the round number and caps well below certainty, so the
// robot stays beatable.
func bias(round int) float64 {
	b := 0.12 * float64(round)
	if b > 0.6 {
		b = 0.6
	}
	return b
}

// Kick chooses a lane away from where the opponent likes to dive, harder
// when the robot is trailing.
func (s *AdaptiveStrategy) Kick(sit Situation) game.Kick {
	weights := [3]float64{1, 1, 1}
	if fav, ok := favourite(sit.OpponentSaves); ok {
		weights[fav] -= bias(sit.Round)
		if weights[fav] < 0.1 {
			weights[fav] = 0.1
		}
	}
	dir := s.weighted(weights)

	power := game.PowerMedium
	robotScore := sit.Score[sit.RobotSlot]
	oppScore := sit.Score[1-sit.RobotSlot]
	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()
	switch {
	case robotScore < oppScore && roll < 0.6:
		power = game.PowerHigh
	case roll < 0.25:
		power = game.PowerHigh
	case roll > 0.85:
		power = game.PowerLow
	}
	return game.Kick{Direction: dir, Power: power}
}

// Save dives toward the opponent's favourite kicking lane with growing
// conviction.
func (s *AdaptiveStrategy) Save(sit Situation) game.Save {
	weights := [3]float64{1, 1, 1}
	if fav, ok := favourite(sit.OpponentKicks); ok {
		weights[fav] += 3 * bias(sit.Round)
	}
	return game.Save{Direction: s.weighted(weights)}
}

// ThinkDelay draws uniformly from [min, max]. The lower bound keeps the
// robot's reply from landing before the opponent could plausibly have
// polled; the upper bound keeps the match moving.
func (s *AdaptiveStrategy) ThinkDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}

func (s *AdaptiveStrategy) weighted(weights [3]float64) game.Direction {
	total := weights[0] + weights[1] + weights[2]
	s.mu.Lock()
	roll := s.rng.Float64() * total
	s.mu.Unlock()
	for i, w := range weights {
		if roll < w {
			return lanes[i]
		}
		roll -= w
	}
	return lanes[len(lanes)-1]
}

// favourite returns the most frequent lane in the history, favouring the
// most recent on ties. ok is false for an empty history.
func favourite(history []game.Direction) (game.Direction, bool) {
	if len(history) == 0 {
		return 0, false
	}
	var counts [3]int
	for _, d := range history {
		if d >= 0 && int(d) < len(counts) {
			counts[d]++
		}
	}
	best := history[len(history)-1]
	for lane, c := range counts {
		if c > counts[best] {
			best = game.Direction(lane)
		}
	}
	return best, true
}
