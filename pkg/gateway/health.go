package gateway

import (
	"net/http"

	"github.com/rhuss/scrubgate/pkg/toolserver"
)

// handleHealthz is an unconditional liveness probe.
func (g *Gateway) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReadyz reports 503 only once the ToolServer Channel has been
// asked to do something and is sitting in Broken state; a channel that
// has never been used, or that is Initializing/Ready, is considered ready
// (the channel starts lazily on first call).
func (g *Gateway) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if g.toolChannel != nil && g.toolChannel.State() == toolserver.Broken {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("toolserver channel broken"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
