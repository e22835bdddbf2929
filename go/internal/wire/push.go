package wire

import (
	"fmt"
	"strings"
)

// Fixed status vocabulary of the legacy protocol. These strings appear in
// <root status="..."/> acknowledgments and are parsed by the client.
const (
	StatusOK           = "OK"
	StatusRetry        = "RETRY"
	StatusRoomNotFound = "ROOM_NOT_FOUND"
	StatusIllegal      = "ILLEGAL_ACTION"
	StatusMatchOver    = "MATCH_OVER"
)

// XMLHeader prefixes every <root> acknowledgment body.
const XMLHeader = `<?xml version="1.0" encoding="utf-8"?>`

// PushNode wraps a game message in the GAMEMESSAGERECEIVED envelope the
// client's lobby layer consumes from getMessages responses. The envelope
// document is serialized and then embedded in an XML attribute, so its inner
// quotes get a second round of escaping. syncString empty means an
// unsynchronized push and serializes as <null/>.
//
// seq is this server's delivery sequence number; the lobby layer ignores
// attributes it does not know, so watermark bookkeeping can ride along.
func PushNode(seq uint64, msg GameMessage, syncString string, playerIndex int) string {
	var sync any
	if syncString != "" {
		sync = syncString
	}
	envelope := Object{
		{Name: "synchronizeString", Value: sync},
		{Name: "playerIndex", Value: playerIndex},
		{Name: "message", Value: msg},
	}
	inner := strings.ReplaceAll(Serialize(envelope), `"`, "&quot;")
	return fmt.Sprintf(`<GAMEMESSAGERECEIVED seq="%d" message="%s" />`, seq, inner)
}

// SyncPushPair builds the two-node form a synchronized call needs: one push
// per player index sharing the function name as synchronizeString, so the
// client's barrier fires once both arrive.
func SyncPushPair(seq uint64, msg GameMessage) string {
	return PushNode(seq, msg, msg.FunctionName, 0) + PushNode(seq, msg, msg.FunctionName, 1)
}
