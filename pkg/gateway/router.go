package gateway

import (
	"net/http"

	"github.com/rhuss/scrubgate/pkg/observability"
)

// Router builds the gateway's full HTTP handler: the spec's external
// interface routes plus the ambient health/ready/metrics endpoints,
// wrapped in request-ID, recovery, and logging middleware.
func (g *Gateway) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat/completions", g.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", g.handleModels)
	mux.HandleFunc("GET /v1/mode", g.handleGetMode)
	mux.HandleFunc("POST /v1/mode", g.handlePostMode)
	mux.HandleFunc("POST /api/v1/files", g.handleFileUpload)
	mux.HandleFunc("GET /api/v1/files/download/{job_id}", g.handleFileDownload)
	mux.HandleFunc("GET /ws/prompts", g.handleObserverStream)

	mux.HandleFunc("GET /healthz", g.handleHealthz)
	mux.HandleFunc("GET /readyz", g.handleReadyz)
	mux.Handle("GET /metrics", observability.MetricsHandler())

	var handler http.Handler = mux
	handler = g.withLogging(handler)
	handler = g.withRecovery(handler)
	handler = g.withRequestID(handler)
	return handler
}
