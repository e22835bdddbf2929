package gateway

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/penaltyarena/go/internal/game"
	"github.com/mcdev12/penaltyarena/go/internal/robot"
	"github.com/mcdev12/penaltyarena/go/internal/room"
	"github.com/mcdev12/penaltyarena/go/internal/wire"
)

// The gateway tests pair two humans so the robot never acts; the strategy
// only satisfies the interface.
type stubStrategy struct{}

func (stubStrategy) Kick(robot.Situation) game.Kick {
	return game.Kick{Direction: game.DirectionCenter, Power: game.PowerLow}
}

func (stubStrategy) Save(robot.Situation) game.Save {
	return game.Save{Direction: game.DirectionCenter}
}

func (stubStrategy) ThinkDelay(min, _ time.Duration) time.Duration { return min }

func newTestService(t *testing.T, maxRooms int) (*Service, *http.ServeMux, string) {
	t.Helper()
	cfg := room.Config{
		MaxRooms:       maxRooms,
		PairingTimeout: 5 * time.Second,
		LeaveGrace:     2 * time.Second,
		IdleExpiry:     time.Minute,
		FinishedExpiry: 20 * time.Second,
		SweepEvery:     10 * time.Second,
		Rules:          game.DefaultRules(),
		RobotMinThink:  time.Second,
		RobotMaxThink:  2 * time.Second,
	}
	reg := room.NewRegistry(cfg, clockwork.NewFakeClock(), stubStrategy{})
	t.Cleanup(reg.Close)

	assetDir := t.TempDir()
	svc := NewService(reg, assetDir)
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	return svc, mux, assetDir
}

func call(t *testing.T, mux *http.ServeMux, path string, p url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path+"?"+p.Encode(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

var roomUIDRe = regexp.MustCompile(`roomUID="([^"]+)"`)
var seqRe = regexp.MustCompile(`seq="(\d+)"`)

func joinOK(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	code, body := call(t, mux, "/joinRoom.php", url.Values{})
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, `status="OK"`)
	m := roomUIDRe.FindStringSubmatch(body)
	require.NotNil(t, m, "joinRoom body missing roomUID: %s", body)
	return m[1]
}

func TestJoinRoomCreatesWaitingRoom(t *testing.T) {
	_, mux, _ := newTestService(t, 8)

	code, body := call(t, mux, "/joinRoom.php", url.Values{"nonce": {"abc"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `status="OK"`)
	assert.Contains(t, body, `slotIndex="0"`)
	assert.Contains(t, body, `opponent="none"`)
	assert.Contains(t, body, `nonce="abc"`)
}

func TestJoinRoomPairsSecondCaller(t *testing.T) {
	_, mux, _ := newTestService(t, 8)

	first := joinOK(t, mux)
	_, body := call(t, mux, "/joinRoom.php", url.Values{})
	assert.Contains(t, body, `roomUID="`+first+`"`)
	assert.Contains(t, body, `slotIndex="1"`)
	assert.Contains(t, body, `opponent="human"`)
}

func TestJoinRoomRetriesWhenFull(t *testing.T) {
	_, mux, _ := newTestService(t, 1)

	joinOK(t, mux)
	joinOK(t, mux) // pairs into the same room
	code, body := call(t, mux, "/joinRoom.php", url.Values{})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `status="RETRY"`)
}

func TestGetMessagesIdempotentUntilAcked(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux)
	joinOK(t, mux)

	p := url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "lastSeq": {"0"}}
	code, body1 := call(t, mux, "/getMessages.php", p)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body1, "GAMEMESSAGERECEIVED")
	require.Contains(t, body1, fnOpponentJoined)

	// same watermark, same body
	_, body2 := call(t, mux, "/getMessages.php", p)
	assert.Equal(t, body1, body2)

	// acknowledge the highest seq and the queue empties
	seqs := seqRe.FindAllStringSubmatch(body1, -1)
	require.NotEmpty(t, seqs)
	last := seqs[len(seqs)-1][1]
	_, body3 := call(t, mux, "/getMessages.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "lastSeq": {last}})
	assert.Equal(t, "", body3, "drained queue must yield an empty body")
}

func TestGetMessagesEmptyBodyWhenNothingPending(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux) // waiting, no events yet

	code, body := call(t, mux, "/getMessages.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "lastSeq": {"0"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", body, "an idle poll returns no bytes at all")
}

// Result announcements go out as a synchronized pair: one push node per
// player index, both carrying the function name as synchronizeString.
func TestRoundResultDeliveredAsSynchronizedPair(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux)
	joinOK(t, mux)

	_, body := call(t, mux, "/submitKick.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "direction": {"LEFT"}, "power": {"HIGH"}})
	require.Contains(t, body, `status="OK"`)
	_, body = call(t, mux, "/submitSave.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"1"}, "direction": {"RIGHT"}})
	require.Contains(t, body, `status="OK"`)

	// kicker queue: opponentJoined (1 node) + goalkeeperJumped ack (1 node)
	// + roundResult (2 nodes, one per player index)
	_, body = call(t, mux, "/getMessages.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "lastSeq": {"0"}})
	assert.Equal(t, 4, strings.Count(body, "<GAMEMESSAGERECEIVED"))
	// each synchronized node names the function twice: as synchronizeString
	// and as functionName
	assert.Equal(t, 4, strings.Count(body, fnRoundResult))
}

func TestStatusVocabulary(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux) // waiting, unpaired

	tests := []struct {
		name   string
		path   string
		params url.Values
		status string
	}{
		{"unknown room poll", "/getMessages.php",
			url.Values{"roomUID": {"nope"}, "slotIndex": {"0"}, "lastSeq": {"0"}},
			wire.StatusRoomNotFound},
		{"unknown room kick", "/submitKick.php",
			url.Values{"roomUID": {"nope"}, "slotIndex": {"0"}, "direction": {"LEFT"}, "power": {"HIGH"}},
			wire.StatusRoomNotFound},
		{"kick before pairing", "/submitKick.php",
			url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "direction": {"LEFT"}, "power": {"HIGH"}},
			wire.StatusIllegal},
		{"bad direction", "/submitKick.php",
			url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "direction": {"UP"}, "power": {"HIGH"}},
			wire.StatusIllegal},
		{"bad slot", "/submitSave.php",
			url.Values{"roomUID": {roomID}, "slotIndex": {"7"}, "direction": {"LEFT"}},
			wire.StatusIllegal},
		{"missing room", "/getMessages.php",
			url.Values{"slotIndex": {"0"}},
			wire.StatusRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, mux, tt.path, tt.params)
			assert.Equal(t, http.StatusOK, code)
			assert.Contains(t, body, `status="`+tt.status+`"`)
		})
	}
}

func TestRoundOverDedicatedEndpoints(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux)
	joinOK(t, mux)

	_, body := call(t, mux, "/submitKick.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "direction": {"LEFT"}, "power": {"HIGH"}})
	require.Contains(t, body, `status="OK"`)

	// goalkeeper sees the incoming kick
	_, body = call(t, mux, "/getMessages.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"1"}, "lastSeq": {"0"}})
	assert.Contains(t, body, fnShooterShooted)

	_, body = call(t, mux, "/submitSave.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"1"}, "direction": {"RIGHT"}})
	require.Contains(t, body, `status="OK"`)

	// both slots learn the outcome
	for _, slot := range []string{"0", "1"} {
		_, body = call(t, mux, "/getMessages.php",
			url.Values{"roomUID": {roomID}, "slotIndex": {slot}, "lastSeq": {"0"}})
		assert.Contains(t, body, fnRoundResult, "slot %s", slot)
	}
}

func TestSendGameMessageDispatch(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux)
	joinOK(t, mux)

	kick := wire.Serialize(wire.GameMessage{
		FunctionName: fnShooterShooted,
		Parameters:   []any{"CENTER", "LOW"},
	})
	_, body := call(t, mux, "/sendGameMessage.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "message": {kick}})
	require.Contains(t, body, `status="OK"`)

	dive := wire.Serialize(wire.GameMessage{
		FunctionName: fnGoalkeeperJumped,
		Parameters:   []any{"CENTER"},
	})
	_, body = call(t, mux, "/sendGameMessage.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"1"}, "message": {dive}})
	require.Contains(t, body, `status="OK"`)

	// matching lanes: the kick was stopped
	_, body = call(t, mux, "/getMessages.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "lastSeq": {"0"}})
	assert.Contains(t, body, fnRoundResult)

	// unknown function is an acknowledged no-op
	junk := wire.Serialize(wire.GameMessage{FunctionName: "teleport", Parameters: []any{}})
	_, body = call(t, mux, "/sendGameMessage.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "message": {junk}})
	assert.Contains(t, body, `status="`+wire.StatusIllegal+`"`)

	// garbage document likewise
	_, body = call(t, mux, "/sendGameMessage.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}, "message": {"<not xml"}})
	assert.Contains(t, body, `status="`+wire.StatusIllegal+`"`)
}

func TestLeaveRoomAlwaysAcks(t *testing.T) {
	_, mux, _ := newTestService(t, 8)
	roomID := joinOK(t, mux)

	_, body := call(t, mux, "/leaveRoom.php",
		url.Values{"roomUID": {roomID}, "slotIndex": {"0"}})
	assert.Contains(t, body, `status="OK"`)

	// unknown room on teardown is still OK
	_, body = call(t, mux, "/leaveRoom.php",
		url.Values{"roomUID": {"gone"}, "slotIndex": {"0"}})
	assert.Contains(t, body, `status="OK"`)
}

func TestCrossdomainPolicyBytes(t *testing.T) {
	_, mux, _ := newTestService(t, 8)

	code, body := call(t, mux, "/crossdomain.xml", url.Values{})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, crossdomainPolicy, body)
}

func TestClientBinaryServedFromAssetDir(t *testing.T) {
	_, mux, assetDir := newTestService(t, 8)

	code, _ := call(t, mux, "/Penalty.swf", url.Values{})
	assert.Equal(t, http.StatusNotFound, code)

	blob := []byte("CWS\x0afake-flash-bytes")
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "Penalty.swf"), blob, 0o644))

	req := httptest.NewRequest(http.MethodGet, "/Penalty.swf", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-shockwave-flash", rec.Header().Get("Content-Type"))
	assert.Equal(t, blob, rec.Body.Bytes())
}

func TestBootProbesAndLanding(t *testing.T) {
	_, mux, _ := newTestService(t, 8)

	_, body := call(t, mux, "/getGameInfo.php", url.Values{})
	assert.Contains(t, body, "ROOMINFO")

	code, body := call(t, mux, "/", url.Values{})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Penalty.swf")

	code, _ = call(t, mux, "/no-such-page", url.Values{})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPostFormParamsAccepted(t *testing.T) {
	_, mux, _ := newTestService(t, 8)

	form := url.Values{"nonce": {"p1"}}
	req := httptest.NewRequest(http.MethodPost, "/joinRoom.php",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `status="OK"`)
	assert.Contains(t, rec.Body.String(), `nonce="p1"`)
}
