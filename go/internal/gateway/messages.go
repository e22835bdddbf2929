package gateway

import (
	"fmt"

	"github.com/mcdev12/penaltyarena/go/internal/events"
	"github.com/mcdev12/penaltyarena/go/internal/game"
	"github.com/mcdev12/penaltyarena/go/internal/wire"
)

// Game-message function names of the legacy client. Inbound messages carry
// the local player's action, outbound pushes describe the opponent's.
const (
	fnShooterShooted   = "opponentShooterShooted"
	fnGoalkeeperJumped = "opponentGoalkeeperJumped"
	fnOpponentJoined   = "opponentJoined"
	fnOpponentLeft     = "opponentLeft"
	fnRoundResult      = "roundResult"
	fnMatchResult      = "matchResult"
)

// synchronizedKind reports whether a delivery uses the paired barrier form:
// one push node per player index, sharing the function name as
// synchronizeString. The client's lobby layer holds such a message until both
// nodes arrived, so the result announcements land on both game layers in the
// same tick.
func synchronizedKind(k events.Kind) bool {
	return k == events.KindRoundResult || k == events.KindMatchResult
}

// eventMessage renders a queued room event as the game message the client's
// game layer dispatches on functionName.
func eventMessage(ev events.Event) wire.GameMessage {
	switch p := ev.Payload.(type) {
	case events.OpponentJoinedPayload:
		return wire.GameMessage{
			FunctionName: fnOpponentJoined,
			Parameters:   []any{p.Slot},
		}
	case events.KickSubmittedPayload:
		return wire.GameMessage{
			FunctionName: fnShooterShooted,
			Parameters:   []any{p.Direction, p.Power, p.Round},
		}
	case events.SaveSubmittedPayload:
		return wire.GameMessage{
			FunctionName: fnGoalkeeperJumped,
			Parameters:   []any{p.Direction, p.Round},
		}
	case events.RoundResultPayload:
		return wire.GameMessage{
			FunctionName: fnRoundResult,
			Parameters: []any{wire.Object{
				{Name: "round", Value: p.Round},
				{Name: "kickerSlot", Value: p.KickerSlot},
				{Name: "goal", Value: p.Goal},
				{Name: "kickDirection", Value: p.KickDirection},
				{Name: "kickPower", Value: p.KickPower},
				{Name: "saveDirection", Value: p.SaveDirection},
				{Name: "score", Value: []any{p.Score[0], p.Score[1]}},
			}},
		}
	case events.MatchResultPayload:
		return wire.GameMessage{
			FunctionName: fnMatchResult,
			Parameters: []any{wire.Object{
				{Name: "score", Value: []any{p.Score[0], p.Score[1]}},
				{Name: "winnerSlot", Value: p.WinnerSlot},
				{Name: "rounds", Value: p.Rounds},
			}},
		}
	case events.OpponentLeftPayload:
		return wire.GameMessage{
			FunctionName: fnOpponentLeft,
			Parameters:   []any{p.Slot},
		}
	default:
		// Unknown payloads still get delivered; the client ignores
		// functions it does not know.
		return wire.GameMessage{
			FunctionName: string(ev.Kind),
			Parameters:   []any{},
		}
	}
}

// paramDirection coerces a deserialized game-message parameter into a lane.
// The client sends either the lane name or its index.
func paramDirection(v any) (game.Direction, error) {
	switch t := v.(type) {
	case string:
		return game.ParseDirection(t)
	case int:
		return laneDirection(t)
	case float64:
		return laneDirection(int(t))
	default:
		return 0, fmt.Errorf("direction parameter has type %T: %w", v, game.ErrIllegalAction)
	}
}

func laneDirection(lane int) (game.Direction, error) {
	if lane < int(game.DirectionLeft) || lane > int(game.DirectionRight) {
		return 0, fmt.Errorf("lane %d out of range: %w", lane, game.ErrIllegalAction)
	}
	return game.Direction(lane), nil
}

func paramPower(v any) (game.Power, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("power parameter has type %T: %w", v, game.ErrIllegalAction)
	}
	return game.ParsePower(s)
}
