package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rhuss/scrubgate/pkg/chatapi"
)

type modeResponse struct {
	Scrubbing bool `json:"scrubbing"`
}

// handleGetMode returns the current Mode Flag.
func (g *Gateway) handleGetMode(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modeResponse{Scrubbing: g.scrubbingIsEnabled()})
}

// handlePostMode mutates the Mode Flag. The change is effective on the
// next request; it never affects a request already in flight.
func (g *Gateway) handlePostMode(w http.ResponseWriter, r *http.Request) {
	var body modeResponse
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, chatapi.ErrorTypeInvalidRequest, "", "malformed mode body: "+err.Error())
		return
	}
	g.setScrubbingEnabled(body.Scrubbing)
	writeJSON(w, http.StatusOK, modeResponse{Scrubbing: body.Scrubbing})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
