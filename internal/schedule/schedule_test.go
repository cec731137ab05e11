package schedule

import (
	"context"
	"testing"
	"time"
)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.After(3*time.Second, func() { got = append(got, "after3") })
	m.Every(time.Second, func() { got = append(got, "tick") })
	m.After(1500*time.Millisecond, func() { got = append(got, "after1.5") })

	m.Advance(3 * time.Second)
	want := []string{"tick", "after1.5", "tick", "after3", "tick"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if m.Now() != 3*time.Second {
		t.Fatalf("unexpected virtual time %v", m.Now())
	}
}

func TestManualStopCancels(t *testing.T) {
	m := NewManual()
	fired := 0
	h := m.Every(time.Second, func() { fired++ })
	m.Advance(2 * time.Second)
	h.Stop()
	m.Advance(5 * time.Second)
	if fired != 2 {
		t.Fatalf("expected 2 fires, got %d", fired)
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending callbacks, got %d", m.Pending())
	}
}

func TestManualStopFromCallback(t *testing.T) {
	m := NewManual()
	fired := 0
	var h Handle
	h = m.Every(time.Second, func() {
		fired++
		if fired == 3 {
			h.Stop()
		}
	})
	m.Advance(10 * time.Second)
	if fired != 3 {
		t.Fatalf("expected 3 fires, got %d", fired)
	}
}

func TestRealtimeStoppedHandleDropsQueuedCallback(t *testing.T) {
	queued := make(chan func(), 4)
	r := NewRealtime(func(fn func()) { queued <- fn })
	ran := false
	h := r.After(time.Millisecond, func() { ran = true })

	var fn func()
	select {
	case fn = <-queued:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for callback to be posted")
	}
	h.Stop()
	fn()
	if ran {
		t.Fatalf("expected stopped callback not to run")
	}
}

func TestRealtimeEveryOnLoop(t *testing.T) {
	loop := NewLoop(8)
	r := NewRealtime(loop.Post)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count := 0
	var h Handle
	h = r.Every(5*time.Millisecond, func() {
		count++
		if count == 3 {
			h.Stop()
			cancel()
		}
	})
	_ = loop.Run(ctx)
	if count != 3 {
		t.Fatalf("expected 3 ticks, got %d", count)
	}
}
