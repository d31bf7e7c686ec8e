package rpc

import (
	"net/http"
	"time"

	"github.com/forma-dev/bridge-core/transfer"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS layer in front of the mux.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is the wire form of a transfer log event.
type wsEvent struct {
	ID     int64          `json:"id"`
	Status string         `json:"status"`
	Record map[string]any `json:"record"`
}

// handleTransfersWS streams transfer status events to the client. The full
// current log is sent first so late subscribers see in-flight transfers.
func (h *Handlers) handleTransfersWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	events, cancel := h.log.Subscribe(64)
	defer cancel()

	for _, rec := range h.log.List() {
		if err := writeWSEvent(conn, transfer.Event{ID: rec.ID, Status: rec.Status, Record: rec}); err != nil {
			return
		}
	}

	// Drain client frames so close and pong frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeWSEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeWSEvent(conn *websocket.Conn, ev transfer.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(wsEvent{
		ID:     ev.ID,
		Status: ev.Status.String(),
		Record: transferView(ev.Record),
	})
}
