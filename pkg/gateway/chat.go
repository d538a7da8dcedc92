package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/scrubgate/pkg/chatapi"
	"github.com/rhuss/scrubgate/pkg/detector"
	"github.com/rhuss/scrubgate/pkg/observability"
	"github.com/rhuss/scrubgate/pkg/observerbus"
	"github.com/rhuss/scrubgate/pkg/patterns"
	"github.com/rhuss/scrubgate/pkg/scrubber"
	"github.com/rhuss/scrubgate/pkg/toolserver"
)

// handleChatCompletions implements spec §4.1's "POST chat completion"
// operation: byte-forward when scrubbing is disabled, or run the
// detect-then-scrub pipeline and return a status envelope when enabled.
func (g *Gateway) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, chatapi.ErrorTypeInvalidRequest, "", "reading request body: "+err.Error())
		return
	}

	var req chatapi.CompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, chatapi.ErrorTypeInvalidRequest, "", "malformed chat completion request: "+err.Error())
		return
	}

	if !g.scrubbingIsEnabled() {
		g.passthroughChat(w, r, body, req.Stream)
		return
	}

	g.scrubChat(w, r, &req)
}

// passthroughChat relays the request bytes to the downstream LLM
// unmodified and relays its response (streamed chunk-by-chunk, or the
// whole body) back verbatim.
func (g *Gateway) passthroughChat(w http.ResponseWriter, r *http.Request, body []byte, stream bool) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, g.llmBaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "", "", "build downstream request: "+err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	g.authHeader(req)

	client := g.client
	if stream {
		client = g.streamClient
	}
	resp, err := client.Do(req)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, chatapi.ErrorTypeServerError, "", "downstream unreachable: "+err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)

	if stream {
		flusher, _ := w.(http.Flusher)
		buf := make([]byte, 4096)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				w.Write(buf[:n])
				if flusher != nil {
					flusher.Flush()
				}
			}
			if readErr != nil {
				return
			}
		}
	}

	io.Copy(w, resp.Body)
}

// scrubChat runs the detect-then-scrub pipeline and always returns a
// short status envelope; raw model output never reaches the caller on
// this path.
func (g *Gateway) scrubChat(w http.ResponseWriter, r *http.Request, req *chatapi.CompletionRequest) {
	ctx := r.Context()
	sessionID := RequestIDFromContext(ctx)
	id := "chatcmpl-" + sessionID

	text, ok := chatapi.LastUserText(req.Messages)
	if !ok {
		g.respondStatus(w, r, req.Stream, id, req.Model, "[ERROR] no user message found in request")
		return
	}

	if int64(len(text)) > g.cfg.PromptLimitBytes {
		g.publish(ctx, observerbus.Event{
			Prompt: text, Sanitized: "", Status: "[ERROR]", Type: observerbus.KindPromptResult,
			Warning: fmt.Sprintf("prompt exceeds size limit of %d bytes", g.cfg.PromptLimitBytes),
		})
		g.respondStatus(w, r, req.Stream, id, req.Model, "[ERROR] prompt exceeds size limit")
		return
	}

	g.publish(ctx, observerbus.Event{Prompt: text, Sanitized: "", Status: "Processing…", Type: observerbus.KindPromptResult})

	verdict := g.detector.Detect(ctx, sessionID, text)

	if verdict.Category == detector.CategoryError {
		g.publish(ctx, observerbus.Event{
			Prompt: text, Sanitized: "", Status: "[ERROR]", Type: observerbus.KindPromptResult,
			Warning: verdict.Summary,
		})
		g.respondStatus(w, r, req.Stream, id, req.Model, "[ERROR] detection failed: "+verdict.Summary)
		return
	}

	if !verdict.NeedsSanitization {
		g.publish(ctx, observerbus.Event{
			Prompt: text, Sanitized: text, Status: "[CLEAN]", Type: observerbus.KindPromptResult,
			Detection: verdict.Category,
		})
		g.respondStatus(w, r, req.Stream, id, req.Model, "[CLEAN] no sensitive content detected")
		return
	}

	if len(verdict.ItemTypes) == 0 {
		g.publish(ctx, observerbus.Event{
			Prompt: text, Sanitized: "", Status: "[WARNING]", Type: observerbus.KindPromptResult,
			Detection: verdict.Category, Warning: "sensitive content flagged but no item types recognized",
		})
		g.respondStatus(w, r, req.Stream, id, req.Model, "[WARNING] sensitive content detected but not scrubbed")
		return
	}

	result, err := g.scrubPrompt(ctx, text)
	if err != nil {
		g.publish(ctx, observerbus.Event{
			Prompt: text, Sanitized: "", Status: "[ERROR]", Type: observerbus.KindPromptResult,
			Warning: err.Error(),
		})
		g.respondStatus(w, r, req.Stream, id, req.Model, "[ERROR] scrubbing failed")
		return
	}

	g.publish(ctx, observerbus.Event{
		Prompt: text, Sanitized: result.SanitizedText, Status: "[SCRUBBED]", Type: observerbus.KindPromptResult,
		Detection: verdict.Category, ReplacementCount: len(result.Replacements), Summary: result.Summary,
	})
	g.respondStatus(w, r, req.Stream, id, req.Model, "[SCRUBBED] sensitive content replaced with placeholders")
}

// scrubPrompt calls the Scrubber through the ToolServer Channel with
// the union of prompt + log item-type vocabularies, per spec §4.1(vii).
func (g *Gateway) scrubPrompt(ctx context.Context, text string) (scrubber.Result, error) {
	raw, err := g.toolChannel.Call(ctx, toolserver.ScrubPrompt, map[string]any{
		"text":       text,
		"item_types": patterns.Union(),
	})
	if err != nil {
		return scrubber.Result{}, err
	}
	var result scrubber.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return scrubber.Result{}, fmt.Errorf("decode scrub result: %w", err)
	}
	for itemType, count := range result.Summary {
		observability.ScrubItemsTotal.WithLabelValues(itemType).Add(float64(count))
	}
	return result, nil
}

// respondStatus writes the status envelope in the shape the caller
// requested: one SSE chunk + [DONE] for streaming, or a single JSON
// body otherwise.
func (g *Gateway) respondStatus(w http.ResponseWriter, r *http.Request, stream bool, id, model, status string) {
	if !stream {
		writeJSON(w, http.StatusOK, chatapi.StatusResponse(id, model, status))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	chunk := chatapi.StatusChunk(id, model, status)
	payload, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (g *Gateway) publish(ctx context.Context, ev observerbus.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = g.bus.Publish(ctx, observerbus.PromptChannel, payload)
}
