// Package gateway exposes the room registry over the legacy polling HTTP
// contract. Paths, parameter names, and response bodies are fixed by the
// shipped client binary and cannot change.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/penaltyarena/go/internal/game"
	"github.com/mcdev12/penaltyarena/go/internal/room"
	"github.com/mcdev12/penaltyarena/go/internal/wire"
)

// Service handles the polling endpoints and static assets.
type Service struct {
	reg      *room.Registry
	assetDir string
}

// NewService creates the gateway over a registry. assetDir holds the client
// binary and other files served verbatim.
func NewService(reg *room.Registry, assetDir string) *Service {
	return &Service{reg: reg, assetDir: assetDir}
}

// RegisterRoutes registers all endpoints on the mux. Every dynamic endpoint
// accepts GET and POST with query or form parameters, as the client mixes
// both freely.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/joinRoom.php", s.HandleJoinRoom)
	mux.HandleFunc("/getMessages.php", s.HandleGetMessages)
	mux.HandleFunc("/submitKick.php", s.HandleSubmitKick)
	mux.HandleFunc("/submitSave.php", s.HandleSubmitSave)
	mux.HandleFunc("/sendGameMessage.php", s.HandleSendGameMessage)
	mux.HandleFunc("/leaveRoom.php", s.HandleLeaveRoom)
	mux.HandleFunc("/getGameInfo.php", s.HandleGameInfo)
	mux.HandleFunc("/crossdomain.xml", s.HandleCrossdomain)
	mux.HandleFunc("/Penalty.swf", s.HandleClientBinary)
	mux.HandleFunc("/", s.HandleIndex)
	log.Info().Msg("gateway routes registered")
}

// HandleJoinRoom assigns the caller a room slot, creating a room when no one
// is waiting. A nonce parameter, when present, is echoed back so the client
// can correlate retries.
func (s *Service) HandleJoinRoom(w http.ResponseWriter, r *http.Request) {
	p := params(r)
	roomID, slotIdx, opponent, err := s.reg.Join()
	if err != nil {
		writeAck(w, statusFor(err))
		return
	}
	var b strings.Builder
	b.WriteString(wire.XMLHeader)
	fmt.Fprintf(&b, `<root status="%s" roomUID="%s" slotIndex="%d" opponent="%s"`,
		wire.StatusOK, roomID, slotIdx, opponent)
	if nonce := p("nonce"); nonce != "" {
		fmt.Fprintf(&b, ` nonce="%s"`, wire.Escape(nonce))
	}
	b.WriteString(" />")
	writeXML(w, b.String())
}

// HandleGetMessages drains the caller's queue past its lastSeq watermark.
// The body is zero or more GAMEMESSAGERECEIVED nodes in sequence order; an
// empty body means nothing pending. Repeating a lastSeq replays the same
// events, so a lost response is never a lost message.
func (s *Service) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	p := params(r)
	roomID, slotIdx, ok := roomSlot(w, p)
	if !ok {
		return
	}
	lastSeq, err := strconv.ParseUint(p("lastSeq"), 10, 64)
	if err != nil && p("lastSeq") != "" {
		writeAck(w, wire.StatusIllegal)
		return
	}
	evs, err := s.reg.Poll(roomID, slotIdx, lastSeq)
	if err != nil {
		writeAck(w, statusFor(err))
		return
	}
	// No prolog here: the body is exactly the concatenated push nodes, and
	// an empty body is the client's "nothing pending" signal.
	var b strings.Builder
	for _, ev := range evs {
		msg := eventMessage(ev)
		if synchronizedKind(ev.Kind) {
			b.WriteString(wire.SyncPushPair(ev.Seq, msg))
			continue
		}
		b.WriteString(wire.PushNode(ev.Seq, msg, "", slotIdx))
	}
	writeXML(w, b.String())
}

// HandleSubmitKick is the dedicated kick endpoint.
func (s *Service) HandleSubmitKick(w http.ResponseWriter, r *http.Request) {
	p := params(r)
	roomID, slotIdx, ok := roomSlot(w, p)
	if !ok {
		return
	}
	dir, err := game.ParseDirection(p("direction"))
	if err != nil {
		writeAck(w, wire.StatusIllegal)
		return
	}
	pow, err := game.ParsePower(p("power"))
	if err != nil {
		writeAck(w, wire.StatusIllegal)
		return
	}
	writeAck(w, statusFor(s.reg.SubmitKick(roomID, slotIdx, game.Kick{Direction: dir, Power: pow})))
}

// HandleSubmitSave is the dedicated save endpoint.
func (s *Service) HandleSubmitSave(w http.ResponseWriter, r *http.Request) {
	p := params(r)
	roomID, slotIdx, ok := roomSlot(w, p)
	if !ok {
		return
	}
	dir, err := game.ParseDirection(p("direction"))
	if err != nil {
		writeAck(w, wire.StatusIllegal)
		return
	}
	writeAck(w, statusFor(s.reg.SubmitSave(roomID, slotIdx, game.Save{Direction: dir})))
}

// HandleSendGameMessage is the unified action endpoint: the client posts a
// typed-XML game message and the function name selects the action.
func (s *Service) HandleSendGameMessage(w http.ResponseWriter, r *http.Request) {
	p := params(r)
	roomID, slotIdx, ok := roomSlot(w, p)
	if !ok {
		return
	}
	msg, err := wire.ParseGameMessage(p("message"))
	if err != nil {
		log.Debug().Err(err).Str("room_id", roomID).Msg("unparseable game message")
		writeAck(w, wire.StatusIllegal)
		return
	}
	writeAck(w, statusFor(s.dispatch(roomID, slotIdx, msg)))
}

// dispatch routes a parsed game message onto the registry.
func (s *Service) dispatch(roomID string, slotIdx int, msg wire.GameMessage) error {
	switch msg.FunctionName {
	case fnShooterShooted:
		if len(msg.Parameters) < 2 {
			return fmt.Errorf("%s needs direction and power: %w", msg.FunctionName, game.ErrIllegalAction)
		}
		dir, err := paramDirection(msg.Parameters[0])
		if err != nil {
			return err
		}
		pow, err := paramPower(msg.Parameters[1])
		if err != nil {
			return err
		}
		return s.reg.SubmitKick(roomID, slotIdx, game.Kick{Direction: dir, Power: pow})
	case fnGoalkeeperJumped:
		if len(msg.Parameters) < 1 {
			return fmt.Errorf("%s needs a direction: %w", msg.FunctionName, game.ErrIllegalAction)
		}
		dir, err := paramDirection(msg.Parameters[0])
		if err != nil {
			return err
		}
		return s.reg.SubmitSave(roomID, slotIdx, game.Save{Direction: dir})
	default:
		return fmt.Errorf("unknown function %q: %w", msg.FunctionName, game.ErrIllegalAction)
	}
}

// HandleLeaveRoom vacates the caller's slot. Leaving an unknown room is
// still OK; the client calls this on teardown paths where the room may
// already be gone.
func (s *Service) HandleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	p := params(r)
	roomID, slotIdx, ok := roomSlot(w, p)
	if !ok {
		return
	}
	if err := s.reg.Leave(roomID, slotIdx); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		writeAck(w, statusFor(err))
		return
	}
	writeAck(w, wire.StatusOK)
}

// statusFor maps registry and match errors onto the fixed wire vocabulary.
// Every mapped error is an acknowledged no-op for the client, so the HTTP
// status stays 200 throughout.
func statusFor(err error) string {
	switch {
	case err == nil:
		return wire.StatusOK
	case errors.Is(err, room.ErrRegistryFull):
		return wire.StatusRetry
	case errors.Is(err, room.ErrRoomNotFound):
		return wire.StatusRoomNotFound
	case errors.Is(err, game.ErrMatchOver):
		return wire.StatusMatchOver
	case errors.Is(err, game.ErrIllegalAction):
		return wire.StatusIllegal
	default:
		log.Error().Err(err).Msg("unexpected registry error")
		return wire.StatusIllegal
	}
}

// params returns a lookup over query and form parameters combined.
func params(r *http.Request) func(string) string {
	_ = r.ParseForm()
	return func(key string) string {
		return r.Form.Get(key)
	}
}

// roomSlot extracts the roomUID and slotIndex pair every room-scoped
// endpoint requires. On a malformed pair it writes the ack itself and
// returns ok=false.
func roomSlot(w http.ResponseWriter, p func(string) string) (string, int, bool) {
	roomID := p("roomUID")
	if roomID == "" {
		writeAck(w, wire.StatusRoomNotFound)
		return "", 0, false
	}
	slotIdx, err := strconv.Atoi(p("slotIndex"))
	if err != nil || slotIdx < 0 || slotIdx > 1 {
		writeAck(w, wire.StatusIllegal)
		return "", 0, false
	}
	return roomID, slotIdx, true
}

func writeAck(w http.ResponseWriter, status string) {
	writeXML(w, fmt.Sprintf(`%s<root status="%s" />`, wire.XMLHeader, status))
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		log.Debug().Err(err).Msg("client went away mid-response")
	}
}
