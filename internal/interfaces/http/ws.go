package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handlePulseStream pushes the current per-opp pulse map to the client
// every second, for the demo UI's live "pulse" gauge.
func (s *Server) handlePulseStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws: upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := s.eng.StateSnapshot()
			pulses := make(map[string]float64, len(snap.PerOpp))
			for oppID, st := range snap.PerOpp {
				pulses[oppID] = st.Pulse
			}
			if err := conn.WriteJSON(map[string]any{"pulses": pulses}); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
