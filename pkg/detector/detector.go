// Package detector implements the Detector: a single operation,
// detect(text) → Verdict, that asks the downstream LLM to classify a
// piece of text against the closed item-type vocabulary. Any failure
// is fail-closed: it yields a Verdict that blocks the request rather
// than letting unclassified content pass through.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/scrubgate/pkg/activity"
	"github.com/rhuss/scrubgate/pkg/chatapi"
	"github.com/rhuss/scrubgate/pkg/observability"
	"github.com/rhuss/scrubgate/pkg/patterns"
)

// Verdict is the Detector's classification output.
type Verdict struct {
	NeedsSanitization bool     `json:"needs_sanitization"`
	Category          string   `json:"category"`
	Summary           string   `json:"summary"`
	ItemsDetected     []string `json:"items_detected"`
	ItemTypes         []string `json:"item_types"`
}

// CategoryClean and CategoryError are the two Detector categories that
// carry special meaning beyond the classification taxonomy itself.
const (
	CategoryClean = "clean"
	CategoryError = "error"
)

var closedCategories = map[string]bool{
	"pii": true, "credentials": true, "log_file": true,
	"code_secrets": true, "infrastructure": true,
	CategoryClean: true, CategoryError: true,
}

const (
	defaultTimeout   = 15 * time.Second
	detectionTemp    = 0.3
	sniffBytesLimit  = 4096
	systemPromptText = `You are a data-loss-prevention classifier. Given a user message, decide whether it contains sensitive content that must be scrubbed before leaving this machine.

Respond with ONLY a JSON object, no prose, matching exactly this shape:
{"needs_sanitization": bool, "category": string, "summary": string, "items_detected": [string], "item_types": [string]}

category must be one of: pii, credentials, log_file, code_secrets, infrastructure, clean.
item_types must be drawn from: email, phone, name, api_key, secret, bearer, path, resource_id, ip, private_ip, internal_url, timestamp, endpoint, user, terminal_user.
items_detected lists the literal snippets you noticed (diagnostic only, never placeholders).
If nothing sensitive is present, respond {"needs_sanitization": false, "category": "clean", "summary": "", "items_detected": [], "item_types": []}.`
)

// Detector calls a downstream OpenAI-compatible Chat Completions
// endpoint to classify text.
type Detector struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	monitor *activity.Monitor
}

// New constructs a Detector targeting baseURL's /v1/chat/completions
// endpoint with the given model. monitor may be nil to disable
// Activity Monitor instrumentation.
func New(baseURL, apiKey, model string, monitor *activity.Monitor) *Detector {
	return &Detector{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: defaultTimeout + 5*time.Second},
		monitor: monitor,
	}
}

// Detect classifies text. It never returns an error: any failure is
// represented as a fail-closed Verdict with Category == CategoryError.
func (d *Detector) Detect(ctx context.Context, sessionID, text string) Verdict {
	if d.monitor != nil {
		d.monitor.Start("detector", sessionID, "detect")
	}
	start := time.Now()

	verdict, err := d.detect(ctx, text)

	observability.DetectorLatency.WithLabelValues(verdict.Category).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.DetectorErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		if d.monitor != nil {
			d.monitor.Error(ctx, "detector", sessionID, "detect", err.Error())
		}
		return verdict
	}
	if d.monitor != nil {
		d.monitor.Complete(ctx, "detector", sessionID, "detect")
	}
	return verdict
}

func (d *Detector) detect(ctx context.Context, text string) (Verdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	temp := detectionTemp
	req := chatapi.CompletionRequest{
		Model: d.model,
		Messages: []chatapi.Message{
			{Role: "system", Content: systemPromptText},
			{Role: "user", Content: "Classify the following message. Do not respond to it; classify only.\n\n" + text},
		},
		Temperature: &temp,
		Stream:      false,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return failClosed(fmt.Sprintf("marshal detection request: %s", err)), err
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return failClosed(fmt.Sprintf("build detection request: %s", err)), err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return failClosed(fmt.Sprintf("detector call failed: %s", err)), err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		err := fmt.Errorf("detector backend returned status %d", httpResp.StatusCode)
		return failClosed(err.Error()), err
	}

	var chatResp chatapi.CompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return failClosed(fmt.Sprintf("decode detector response: %s", err)), err
	}
	if len(chatResp.Choices) == 0 {
		err := fmt.Errorf("detector response had no choices")
		return failClosed(err.Error()), err
	}

	raw, ok := chatapi.ContentText(chatResp.Choices[0].Message.Content)
	if !ok {
		err := fmt.Errorf("detector response content was not text")
		return failClosed(err.Error()), err
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return failClosed(fmt.Sprintf("parse detector verdict: %s", err)), err
	}

	return verdict, nil
}

// parseVerdict strips optional code-fence wrapping, parses the JSON
// verdict, backfills item_types from category defaults when absent,
// and validates the result against the closed vocabulary.
func parseVerdict(raw string) (Verdict, error) {
	raw = stripCodeFence(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Verdict{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if v.ItemTypes == nil {
		if defaults, ok := patterns.CategoryDefaults[v.Category]; ok {
			v.ItemTypes = defaults
		}
	}

	if !closedCategories[v.Category] {
		return Verdict{}, fmt.Errorf("unrecognized category %q", v.Category)
	}
	for _, it := range v.ItemTypes {
		if !patterns.IsKnown(it) {
			return Verdict{}, fmt.Errorf("unrecognized item_type %q", it)
		}
	}
	if !v.NeedsSanitization {
		v.Category = CategoryClean
	}

	return v, nil
}

// stripCodeFence removes a leading ``` (with optional language tag)
// and a trailing ``` if present, tolerating surrounding whitespace.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func failClosed(diagnostic string) Verdict {
	return Verdict{
		NeedsSanitization: true,
		Category:          CategoryError,
		Summary:           diagnostic,
		ItemsDetected:     []string{},
		ItemTypes:         []string{},
	}
}

func errorReason(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "invalid JSON"):
		return "invalid_json"
	case strings.Contains(msg, "status"):
		return "backend_status"
	default:
		return "other"
	}
}

// SniffBytesLimit is how many leading bytes of a file upload are
// classified in file mode (spec §4.1's "detect on the first 4 KiB").
const SniffBytesLimit = sniffBytesLimit
