package gateway

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/penaltyarena/go/internal/wire"
)

// crossdomainPolicy is the allow-all policy the Flash runtime fetches before
// any cross-origin request. Byte layout matters to old player versions.
const crossdomainPolicy = `<?xml version="1.0"?>
<cross-domain-policy>
  <allow-access-from domain="*" />
</cross-domain-policy>
`

const indexPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Penalty Arena</title></head>
<body>
<h1>Penalty Arena</h1>
<p>Load <a href="/Penalty.swf">/Penalty.swf</a> in a Flash-capable player
pointed at this host.</p>
</body>
</html>
`

// gameInfoStanza is the static room-info document the client probes at boot
// before joining. Capacity is cosmetic; real admission happens in joinRoom.
const gameInfoStanza = wire.XMLHeader +
	`<root><ROOMINFO roomID="1" roomName="Main Room" roomCapacity="100" noOfPlayers="1" /></root>`

// HandleGameInfo serves the boot-time room probe.
func (s *Service) HandleGameInfo(w http.ResponseWriter, r *http.Request) {
	writeXML(w, gameInfoStanza)
}

// HandleCrossdomain serves the Flash cross-domain policy.
func (s *Service) HandleCrossdomain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/x-cross-domain-policy")
	if _, err := w.Write([]byte(crossdomainPolicy)); err != nil {
		log.Debug().Err(err).Msg("client went away mid-response")
	}
}

// HandleClientBinary serves the game client verbatim from the asset dir.
// 404 when the binary was not deployed alongside the server.
func (s *Service) HandleClientBinary(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.assetDir, "Penalty.swf")
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("path", path).Msg("client binary not found in asset dir")
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/x-shockwave-flash")
	http.ServeFile(w, r, path)
}

// HandleIndex serves the landing page on the bare root and 404s everything
// else that fell through the mux.
func (s *Service) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(indexPage)); err != nil {
		log.Debug().Err(err).Msg("client went away mid-response")
	}
}
