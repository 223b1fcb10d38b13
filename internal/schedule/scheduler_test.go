package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestEveryRunsRepeatedly(t *testing.T) {
	s := New(zap.NewNop())
	var n atomic.Int32
	s.Every("tick", 10*time.Millisecond, func(context.Context) { n.Add(1) })

	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if got := n.Load(); got < 3 {
		t.Errorf("ran %d passes, want at least 3", got)
	}
}

func TestFirstPassIsImmediate(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	ran := make(chan struct{}, 1)
	s.Every("slow", time.Hour, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("first pass did not run immediately")
	}
}

// TestPassesNeverOverlap verifies a task re-arms only after its pass returns.
func TestPassesNeverOverlap(t *testing.T) {
	s := New(zap.NewNop())
	var active, overlaps atomic.Int32
	s.Every("slow", time.Millisecond, func(context.Context) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	})

	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if overlaps.Load() != 0 {
		t.Errorf("observed %d overlapping passes", overlaps.Load())
	}
}

// TestStopWaitsForInFlightPass verifies a pass in flight runs to completion on
// a context that is not cancelled by Stop.
func TestStopWaitsForInFlightPass(t *testing.T) {
	s := New(zap.NewNop())
	started := make(chan struct{})
	var finished, cancelled atomic.Bool

	s.Every("io", time.Hour, func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		cancelled.Store(ctx.Err() != nil)
		finished.Store(true)
	})

	<-started
	s.Stop()

	if !finished.Load() {
		t.Error("Stop returned before the in-flight pass finished")
	}
	if cancelled.Load() {
		t.Error("in-flight pass saw a cancelled context")
	}
}

func TestPanicIsContained(t *testing.T) {
	s := New(zap.NewNop())
	var n atomic.Int32
	s.Every("flaky", 5*time.Millisecond, func(context.Context) {
		if n.Add(1) == 1 {
			panic("boom")
		}
	})

	time.Sleep(60 * time.Millisecond)
	s.Stop()

	if n.Load() < 2 {
		t.Errorf("task did not re-arm after a panic (passes = %d)", n.Load())
	}
}

func TestParse(t *testing.T) {
	for _, expr := range []string{"@every 30s", "*/5 * * * *", "@hourly"} {
		if _, err := Parse(expr); err != nil {
			t.Errorf("Parse(%q) error = %v", expr, err)
		}
	}
	if _, err := Parse("not a schedule"); err == nil {
		t.Error("expected error for garbage expression")
	}

	s := New(zap.NewNop())
	defer s.Stop()
	if err := s.Cron("bad", "61 * * * *", func(context.Context) {}); err == nil {
		t.Error("Cron should reject an invalid expression")
	}
}

func TestIntervalNext(t *testing.T) {
	now := time.Unix(1000, 0)
	if got := Interval(1500 * time.Millisecond).Next(now); !got.Equal(now.Add(1500 * time.Millisecond)) {
		t.Errorf("Next = %v", got)
	}
}
