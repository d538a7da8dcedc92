package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rhuss/scrubgate/pkg/observability"
	"github.com/rhuss/scrubgate/pkg/observerbus"
)

// upgrader allows all origins: the observer panel is a decoupled
// frontend served from its own origin, and the deployment contract is
// loopback-only (see handleFileDownload's analogous reasoning).
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleObserverStream implements spec §4.1's "GET observer-stream
// upgrade" operation: every event published on the prompt_intercept
// channel is relayed to the socket until the client disconnects.
func (g *Gateway) handleObserverStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("observer websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub, err := g.bus.Subscribe(r.Context(), observerbus.PromptChannel)
	if err != nil {
		g.logger.Error("observer subscribe failed", "error", err)
		return
	}
	defer sub.Close()

	observability.ObserverConnectionsActive.Inc()
	defer observability.ObserverConnectionsActive.Dec()

	// Drain client reads on a goroutine purely to notice disconnects;
	// the observer stream is one-directional (server to client).
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
