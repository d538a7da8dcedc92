package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/scrubgate/pkg/chatapi"
)

func fakeBackend(t *testing.T, assistantText string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := chatapi.CompletionResponse{
			ID:     "cmpl-1",
			Object: "chat.completion",
			Model:  "test-model",
			Choices: []chatapi.Choice{{
				Index:        0,
				Message:      chatapi.Message{Role: "assistant", Content: assistantText},
				FinishReason: "stop",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestDetectCleanVerdict(t *testing.T) {
	backend := fakeBackend(t, `{"needs_sanitization": false, "category": "clean", "summary": "", "items_detected": [], "item_types": []}`, http.StatusOK)
	defer backend.Close()

	d := New(backend.URL, "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-1", "hello there")

	if v.NeedsSanitization {
		t.Fatalf("expected clean verdict, got %+v", v)
	}
	if v.Category != CategoryClean {
		t.Fatalf("expected category clean, got %q", v.Category)
	}
}

func TestDetectStripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"needs_sanitization\": true, \"category\": \"pii\", \"summary\": \"email found\", \"items_detected\": [\"a@example.com\"], \"item_types\": [\"email\"]}\n```"
	backend := fakeBackend(t, fenced, http.StatusOK)
	defer backend.Close()

	d := New(backend.URL, "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-2", "my email is a@example.com")

	if !v.NeedsSanitization || v.Category != "pii" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
	if len(v.ItemTypes) != 1 || v.ItemTypes[0] != "email" {
		t.Fatalf("unexpected item types: %v", v.ItemTypes)
	}
}

func TestDetectBackfillsItemTypesFromCategoryDefaults(t *testing.T) {
	backend := fakeBackend(t, `{"needs_sanitization": true, "category": "credentials", "summary": "secret found"}`, http.StatusOK)
	defer backend.Close()

	d := New(backend.URL, "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-3", "api_key=abcd1234")

	if len(v.ItemTypes) == 0 {
		t.Fatalf("expected item_types to be backfilled, got %+v", v)
	}
}

func TestDetectFailsClosedOnBackendError(t *testing.T) {
	backend := fakeBackend(t, "", http.StatusInternalServerError)
	defer backend.Close()

	d := New(backend.URL, "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-4", "anything")

	if !v.NeedsSanitization || v.Category != CategoryError {
		t.Fatalf("expected fail-closed error verdict, got %+v", v)
	}
}

func TestDetectFailsClosedOnNonJSONBody(t *testing.T) {
	backend := fakeBackend(t, "not json at all", http.StatusOK)
	defer backend.Close()

	d := New(backend.URL, "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-5", "anything")

	if v.Category != CategoryError {
		t.Fatalf("expected error category, got %+v", v)
	}
}

func TestDetectFailsClosedOnUnknownItemType(t *testing.T) {
	backend := fakeBackend(t, `{"needs_sanitization": true, "category": "pii", "item_types": ["not_a_real_type"]}`, http.StatusOK)
	defer backend.Close()

	d := New(backend.URL, "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-6", "anything")

	if v.Category != CategoryError {
		t.Fatalf("expected error category for invalid item_type, got %+v", v)
	}
}

func TestDetectFailsClosedOnUnreachableBackend(t *testing.T) {
	d := New("http://127.0.0.1:1", "", "test-model", nil)
	v := d.Detect(context.Background(), "sess-7", "anything")

	if v.Category != CategoryError {
		t.Fatalf("expected error category for unreachable backend, got %+v", v)
	}
}

func TestStripCodeFenceVariants(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"{}", "{}"},
		{"  {}  ", "{}"},
	}
	for _, c := range cases {
		if got := stripCodeFence(c.in); got != c.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseVerdictRejectsUnknownCategory(t *testing.T) {
	_, err := parseVerdict(`{"needs_sanitization": true, "category": "not_a_category"}`)
	if err == nil {
		t.Fatal("expected error for unrecognized category")
	}
	if !strings.Contains(err.Error(), "category") {
		t.Fatalf("expected category-related error, got %v", err)
	}
}
