// Package chatapi defines the OpenAI-compatible Chat Completions wire
// format that the gateway accepts from the chat UI and forwards to (or
// synthesizes a response for, in place of) the downstream LLM server.
package chatapi

import "encoding/json"

// CompletionRequest is the request body for POST /v1/chat/completions.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Tools       []json.RawMessage `json:"tools,omitempty"`
}

// Message is a single chat message. Content is untyped because upstream
// clients occasionally send a content-parts array instead of a plain
// string; LastUserText below normalizes both shapes.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// LastUserText extracts the plain-text content of the last user-role
// message in the conversation. Returns ("", false) if there is no
// user message, or if its content is not representable as text.
func LastUserText(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		return contentToText(messages[i].Content)
	}
	return "", false
}

// ContentText normalizes any single message's content field (plain
// string or content-parts array) to a string, regardless of role.
func ContentText(content any) (string, bool) {
	return contentToText(content)
}

// contentToText normalizes a Chat Completions content field (a plain
// string, or a list of {"type":"text","text":"..."} parts) to a string.
func contentToText(content any) (string, bool) {
	switch v := content.(type) {
	case string:
		return v, true
	case []any:
		var text string
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := m["type"].(string); t == "text" {
				if s, ok := m["text"].(string); ok {
					text += s
				}
			}
		}
		return text, text != ""
	default:
		return "", false
	}
}

// CompletionResponse is the non-streaming response body.
type CompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// CompletionChunk is a single SSE data frame in a streaming response.
type CompletionChunk struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice is a streaming choice delta.
type ChunkChoice struct {
	Index        int         `json:"index"`
	Delta        ChunkDelta  `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// ChunkDelta holds the incremental content of one streaming chunk.
type ChunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// StatusResponse builds the single-frame non-streaming response the
// gateway returns in place of the model's real output when scrubbing is
// enabled: a short envelope carrying only the status string.
func StatusResponse(id, model, status string) *CompletionResponse {
	return &CompletionResponse{
		ID:     id,
		Object: "chat.completion",
		Model:  model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: status},
			FinishReason: "stop",
		}},
	}
}

// StatusChunk builds the single SSE frame the gateway emits for a
// streaming request in scrubbing mode: one chat.completion.chunk
// envelope carrying the full status string as the delta content.
func StatusChunk(id, model, status string) *CompletionChunk {
	content := status
	finish := "stop"
	return &CompletionChunk{
		ID:     id,
		Object: "chat.completion.chunk",
		Model:  model,
		Choices: []ChunkChoice{{
			Index:        0,
			Delta:        ChunkDelta{Role: "assistant", Content: &content},
			FinishReason: &finish,
		}},
	}
}
