package gateway

import (
	"io"
	"net/http"

	"github.com/rhuss/scrubgate/pkg/chatapi"
)

// handleModels proxies GET /v1/models to the downstream LLM verbatim.
// Scrubbing mode has no effect here: the model catalog is not
// sensitive per se, and the chat UI needs it to populate its picker
// regardless of the Mode Flag.
func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, g.llmBaseURL+"/v1/models", nil)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "", "", "build models request: "+err.Error())
		return
	}
	g.authHeader(req)

	resp, err := g.client.Do(req)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, chatapi.ErrorTypeServerError, "", "downstream unreachable: "+err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}
