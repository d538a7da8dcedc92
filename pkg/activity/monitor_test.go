package activity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rhuss/scrubgate/pkg/observerbus"
)

func TestMonitorEmitsDurationOnComplete(t *testing.T) {
	bus := observerbus.NewMemoryBus()
	sub, err := bus.Subscribe(context.Background(), observerbus.ActivityChannel)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	m := New(bus)
	m.Start("detector", "sess-1", "detect")
	time.Sleep(5 * time.Millisecond)
	m.Complete(context.Background(), "detector", "sess-1", "detect")

	select {
	case raw := <-sub.Messages():
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Outcome != "complete" {
			t.Fatalf("expected outcome complete, got %q", ev.Outcome)
		}
		if ev.DurationMS <= 0 {
			t.Fatalf("expected positive duration, got %d", ev.DurationMS)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for activity event")
	}
}

func TestMonitorEmitsErrorWithMessage(t *testing.T) {
	bus := observerbus.NewMemoryBus()
	sub, err := bus.Subscribe(context.Background(), observerbus.ActivityChannel)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	m := New(bus)
	m.Start("detector", "sess-2", "detect")
	m.Error(context.Background(), "detector", "sess-2", "detect", "timeout")

	select {
	case raw := <-sub.Messages():
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Outcome != "error" || ev.Error != "timeout" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for activity event")
	}
}

func TestMonitorKeysAreIndependentPerSession(t *testing.T) {
	bus := observerbus.NewMemoryBus()
	sub, err := bus.Subscribe(context.Background(), observerbus.ActivityChannel)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	m := New(bus)
	m.Start("detector", "sess-a", "detect")
	m.Start("detector", "sess-b", "detect")
	m.Complete(context.Background(), "detector", "sess-a", "detect")

	select {
	case raw := <-sub.Messages():
		var ev Event
		_ = json.Unmarshal(raw, &ev)
		if ev.SessionID != "sess-a" {
			t.Fatalf("expected sess-a to complete independently, got %q", ev.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	// sess-b never completes or errors; this must not emit anything else.
	select {
	case raw := <-sub.Messages():
		t.Fatalf("unexpected extra event: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitorCompleteWithoutStartReportsZeroDuration(t *testing.T) {
	bus := observerbus.NewMemoryBus()
	sub, err := bus.Subscribe(context.Background(), observerbus.ActivityChannel)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	m := New(bus)
	m.Complete(context.Background(), "detector", "sess-orphan", "detect")

	select {
	case raw := <-sub.Messages():
		var ev Event
		_ = json.Unmarshal(raw, &ev)
		if ev.DurationMS != 0 {
			t.Fatalf("expected zero duration for unmatched complete, got %d", ev.DurationMS)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}
