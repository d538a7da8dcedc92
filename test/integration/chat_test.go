package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/scrubgate/pkg/chatapi"
)

func postChat(t *testing.T, env *testEnv, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(env.Server.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/chat/completions: %v", err)
	}
	return resp
}

func decodeCompletion(t *testing.T, resp *http.Response) chatapi.CompletionResponse {
	t.Helper()
	defer resp.Body.Close()
	var out chatapi.CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode completion response: %v", err)
	}
	return out
}

func TestChatPassthroughWhenScrubbingDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	resp := postChat(t, env, `{"model":"mock-model","messages":[{"role":"user","content":"hello"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decodeCompletion(t, resp)
	content, _ := out.Choices[0].Message.Content.(string)
	if content != "passthrough echo response" {
		t.Fatalf("expected the downstream LLM's raw reply to pass through, got %q", content)
	}
}

func TestChatCleanVerdictReturnsCleanStatus(t *testing.T) {
	env := newTestEnv(t, true)
	nextVerdict = `{"needs_sanitization": false, "category": "clean", "summary": "", "items_detected": [], "item_types": []}`

	resp := postChat(t, env, `{"model":"mock-model","messages":[{"role":"user","content":"hello there"}]}`)
	out := decodeCompletion(t, resp)
	content, _ := out.Choices[0].Message.Content.(string)
	if !strings.HasPrefix(content, "[CLEAN]") {
		t.Fatalf("expected [CLEAN] status, got %q", content)
	}
}

func TestChatSensitiveContentIsScrubbed(t *testing.T) {
	env := newTestEnv(t, true)
	nextVerdict = `{"needs_sanitization": true, "category": "pii", "summary": "email found", "items_detected": ["a@example.com"], "item_types": ["email"]}`

	resp := postChat(t, env, `{"model":"mock-model","messages":[{"role":"user","content":"my email is a@example.com"}]}`)
	out := decodeCompletion(t, resp)
	content, _ := out.Choices[0].Message.Content.(string)
	if !strings.HasPrefix(content, "[SCRUBBED]") {
		t.Fatalf("expected [SCRUBBED] status, got %q", content)
	}

	// The gateway never returns the raw LLM output in scrubbing mode:
	// the response is the short status envelope, never a reflected copy
	// of the sensitive input.
	if strings.Contains(content, "a@example.com") {
		t.Fatalf("response leaked the raw sensitive value: %q", content)
	}
}

func TestChatNeedsSanitizationWithNoItemTypesWarns(t *testing.T) {
	env := newTestEnv(t, true)
	nextVerdict = `{"needs_sanitization": true, "category": "pii", "summary": "unspecified", "items_detected": [], "item_types": []}`

	resp := postChat(t, env, `{"model":"mock-model","messages":[{"role":"user","content":"something sensitive-ish"}]}`)
	out := decodeCompletion(t, resp)
	content, _ := out.Choices[0].Message.Content.(string)
	if !strings.HasPrefix(content, "[WARNING]") {
		t.Fatalf("expected [WARNING] status, got %q", content)
	}
}

func TestChatDetectorErrorFailsClosed(t *testing.T) {
	env := newTestEnv(t, true)
	env.MockBackend.Close() // downstream unreachable -> Detect fails closed

	resp := postChat(t, env, `{"model":"mock-model","messages":[{"role":"user","content":"anything"}]}`)
	out := decodeCompletion(t, resp)
	content, _ := out.Choices[0].Message.Content.(string)
	if !strings.HasPrefix(content, "[ERROR]") {
		t.Fatalf("expected [ERROR] status on fail-closed detector, got %q", content)
	}
}

func TestChatStreamingEmitsOneChunkThenDone(t *testing.T) {
	env := newTestEnv(t, true)
	nextVerdict = `{"needs_sanitization": false, "category": "clean", "summary": "", "items_detected": [], "item_types": []}`

	resp := postChat(t, env, `{"model":"mock-model","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	body := buf.String()

	if !strings.Contains(body, "chat.completion.chunk") {
		t.Fatalf("expected a chat.completion.chunk frame, got: %s", body)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Fatalf("expected the stream to end with data: [DONE], got: %s", body)
	}
}

func TestChatMalformedBodyIsRejected(t *testing.T) {
	env := newTestEnv(t, false)

	resp := postChat(t, env, `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}
