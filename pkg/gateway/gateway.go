// Package gateway implements the interception gateway's HTTP surface:
// chat completion passthrough/scrubbing, file upload/download, the mode
// toggle, and the observer-stream WebSocket upgrade. It wires together
// the Detector, Scrubber (via the ToolServer Channel), Observer Bus,
// Activity Monitor, and Sandbox behind the OpenAI-compatible routes the
// chat UI expects.
package gateway

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rhuss/scrubgate/pkg/activity"
	"github.com/rhuss/scrubgate/pkg/detector"
	"github.com/rhuss/scrubgate/pkg/observerbus"
	"github.com/rhuss/scrubgate/pkg/sandbox"
	"github.com/rhuss/scrubgate/pkg/toolserver"
)

// Config holds the values Gateway needs beyond its wired dependencies.
type Config struct {
	RequestIDHeader  string
	PromptLimitBytes int64
	FileLimitBytes   int64
	SniffBytes       int
	PassthroughURL   string // downstream UI's file endpoint, used when scrubbing is disabled
	LLMTimeout       time.Duration
}

// Gateway holds the wired dependencies and serves the HTTP surface
// described in spec §4.1 / §6.
type Gateway struct {
	llmBaseURL   string
	llmAPIKey    string
	client       *http.Client // fixed timeout, for non-streaming downstream calls
	streamClient *http.Client // no timeout, relies on request context cancellation

	detector    *detector.Detector
	toolChannel *toolserver.Channel
	bus         observerbus.Bus
	monitor     *activity.Monitor
	sandbox     *sandbox.Sandbox

	cfg    Config
	logger *slog.Logger

	mu               sync.RWMutex
	scrubbingEnabled bool
}

// New constructs a Gateway. enabledByDefault seeds the Mode Flag.
func New(
	llmBaseURL, llmAPIKey string,
	det *detector.Detector,
	toolChannel *toolserver.Channel,
	bus observerbus.Bus,
	monitor *activity.Monitor,
	sb *sandbox.Sandbox,
	cfg Config,
	enabledByDefault bool,
) *Gateway {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}
	return &Gateway{
		llmBaseURL:       llmBaseURL,
		llmAPIKey:        llmAPIKey,
		client:           &http.Client{Timeout: cfg.LLMTimeout},
		streamClient:     &http.Client{},
		detector:         det,
		toolChannel:      toolChannel,
		bus:              bus,
		monitor:          monitor,
		sandbox:          sb,
		cfg:              cfg,
		logger:           slog.Default(),
		scrubbingEnabled: enabledByDefault,
	}
}

func (g *Gateway) scrubbingIsEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scrubbingEnabled
}

func (g *Gateway) setScrubbingEnabled(v bool) {
	g.mu.Lock()
	g.scrubbingEnabled = v
	g.mu.Unlock()
}

func (g *Gateway) authHeader(req *http.Request) {
	if g.llmAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.llmAPIKey)
	}
}
