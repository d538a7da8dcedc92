// Command mock-backend runs a deterministic Chat Completions server
// that stands in for the downstream LLM during local development and
// manual testing of the gateway. It serves two roles: the Detector's
// classification calls (recognized by the DLP system prompt, answered
// with a scripted JSON verdict keyed off simple content heuristics)
// and the plain passthrough/chat path (echoed back behind a fixed
// "passthrough echo response" prefix), plus a
// minimal streaming variant of the latter.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

// dlpSystemPromptMarker recognizes the Detector's system prompt by its
// distinctive phrase, rather than matching the whole text verbatim, so
// small wording edits to the Detector don't desync this mock.
var dlpSystemPromptMarker = regexp.MustCompile(`(?i)data-loss-prevention classifier`)

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	if isDetectionRequest(&req) {
		resp := classificationResponse(&req)
		resp.Model = modelOrDefault(req.Model)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		return
	}

	if req.Stream {
		handleStreaming(w, &req)
		return
	}

	resp := echoResponse(&req)
	resp.Model = modelOrDefault(req.Model)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func modelOrDefault(model string) string {
	if model == "" {
		return "mock-model"
	}
	return model
}

func isDetectionRequest(req *chatRequest) bool {
	for _, msg := range req.Messages {
		if msg.Role != "system" {
			continue
		}
		if text, ok := msg.Content.(string); ok && dlpSystemPromptMarker.MatchString(text) {
			return true
		}
	}
	return false
}

// classificationResponse scripts the Detector's verdict from simple
// substring heuristics on the last user message, so manual runs
// against mock-backend can exercise the gateway's clean, scrubbed and
// warning branches without a real model in the loop; no heuristic
// yields an error verdict.
func classificationResponse(req *chatRequest) chatResponse {
	text := strings.ToLower(lastUserMessage(req))

	var verdict string
	switch {
	case strings.Contains(text, "@"):
		verdict = `{"needs_sanitization": true, "category": "pii", "summary": "email address present", "items_detected": ["redacted"], "item_types": ["email"]}`
	case strings.Contains(text, "bearer ") || strings.Contains(text, "api_key") || strings.Contains(text, "secret"):
		verdict = `{"needs_sanitization": true, "category": "credentials", "summary": "credential-shaped token present", "items_detected": ["redacted"], "item_types": ["bearer", "api_key"]}`
	case strings.Contains(text, "sensitive"):
		verdict = `{"needs_sanitization": true, "category": "pii", "summary": "unspecified sensitive content", "items_detected": [], "item_types": []}`
	default:
		verdict = `{"needs_sanitization": false, "category": "clean", "summary": "", "items_detected": [], "item_types": []}`
	}

	return makeTextResponse(verdict)
}

func echoResponse(req *chatRequest) chatResponse {
	text := lastUserMessage(req)
	if text == "" {
		text = "passthrough echo response"
	} else {
		text = "passthrough echo response: " + text
	}
	return makeTextResponse(text)
}

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: &text,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *chatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := modelOrDefault(req.Model)
	text := lastUserMessage(req)
	if text == "" {
		text = "passthrough echo response"
	}
	tokens := strings.Fields(text)

	writeSSEChunk(w, model, "", true)
	flusher.Flush()

	for _, token := range tokens {
		writeSSEChunk(w, model, token+" ", false)
		flusher.Flush()
	}

	writeFinishChunk(w, model, len(tokens))
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSSEChunk(w http.ResponseWriter, model, content string, isRole bool) {
	delta := map[string]any{}
	if isRole {
		delta["role"] = "assistant"
	}
	if content != "" {
		delta["content"] = content
	}

	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{"index": 0, "delta": delta, "finish_reason": nil},
		},
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeFinishChunk(w http.ResponseWriter, model string, tokenCount int) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{"index": 0, "delta": map[string]any{}, "finish_reason": "stop"},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": tokenCount,
			"total_tokens":      10 + tokenCount,
		},
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "scrubgate-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		if text, ok := req.Messages[i].Content.(string); ok {
			return text
		}
	}
	return ""
}
