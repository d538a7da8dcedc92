// Package activity implements the Activity Monitor: a keyed timing
// registry that turns a start/complete (or start/error) pair of calls
// into one duration-annotated event on the Observer Bus. It never
// gates request handling — it only observes.
package activity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rhuss/scrubgate/pkg/observerbus"
)

// key identifies one in-flight unit of work.
type key struct {
	agent     string
	sessionID string
	baseState string
}

// Event is published on observerbus.ActivityChannel for every
// completed or errored unit of work.
type Event struct {
	Agent      string `json:"agent"`
	SessionID  string `json:"session_id"`
	BaseState  string `json:"base_state"`
	Outcome    string `json:"outcome"` // "complete" or "error"
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Monitor records start times keyed by (agent, session_id, base_state)
// and emits a duration-annotated Event on Complete/Error.
type Monitor struct {
	bus observerbus.Bus

	mu      sync.Mutex
	started map[key]time.Time
}

// New constructs a Monitor publishing onto bus.
func New(bus observerbus.Bus) *Monitor {
	return &Monitor{bus: bus, started: make(map[key]time.Time)}
}

// Start captures a monotonic start timestamp for (agent, sessionID,
// baseState). A subsequent Complete or Error consumes it.
func (m *Monitor) Start(agent, sessionID, baseState string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[key{agent, sessionID, baseState}] = time.Now()
}

// Complete reads and deletes the start time for (agent, sessionID,
// baseState), then publishes a "complete" Event carrying its duration.
// If no matching Start was recorded, duration is reported as zero.
func (m *Monitor) Complete(ctx context.Context, agent, sessionID, baseState string) {
	m.finish(ctx, agent, sessionID, baseState, "complete", "")
}

// Error is Complete's failure counterpart: it publishes an "error"
// Event carrying errMsg alongside the elapsed duration.
func (m *Monitor) Error(ctx context.Context, agent, sessionID, baseState, errMsg string) {
	m.finish(ctx, agent, sessionID, baseState, "error", errMsg)
}

func (m *Monitor) finish(ctx context.Context, agent, sessionID, baseState, outcome, errMsg string) {
	k := key{agent, sessionID, baseState}

	m.mu.Lock()
	start, ok := m.started[k]
	delete(m.started, k)
	m.mu.Unlock()

	var durationMS int64
	if ok {
		durationMS = time.Since(start).Milliseconds()
	}

	event := Event{
		Agent:      agent,
		SessionID:  sessionID,
		BaseState:  baseState,
		Outcome:    outcome,
		DurationMS: durationMS,
		Error:      errMsg,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return // observability must never panic the caller's request path
	}
	_ = m.bus.Publish(ctx, observerbus.ActivityChannel, payload)
}
