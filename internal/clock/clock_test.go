package clock_test

import (
	"testing"
	"time"

	"github.com/onyxstream/coordlog/internal/clock"
)

func TestWallNowUsesUTC(t *testing.T) {
	t.Parallel()
	now := clock.Wall{}.Now()
	if loc := now.Location(); loc != time.UTC {
		t.Fatalf("expected UTC location, got %v", loc)
	}
	if delta := time.Since(now); delta < 0 || delta > time.Second {
		t.Fatalf("unexpected Now delta: %v", delta)
	}
}

func TestWallAfterDelivers(t *testing.T) {
	t.Parallel()
	select {
	case <-clock.Wall{}.After(10 * time.Millisecond):
	case <-time.After(5 * time.Second):
		t.Fatal("After did not fire within timeout")
	}
}

func TestManualAdvanceFiresDueTimers(t *testing.T) {
	t.Parallel()
	m := clock.NewManual(time.Unix(1_700_000_000, 0))
	short := m.After(100 * time.Millisecond)
	long := m.After(time.Hour)
	if got := m.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}

	m.Advance(100 * time.Millisecond)
	select {
	case <-short:
	default:
		t.Fatal("due timer did not fire")
	}
	select {
	case <-long:
		t.Fatal("undue timer fired early")
	default:
	}
	if got := m.Pending(); got != 1 {
		t.Fatalf("Pending = %d after advance, want 1", got)
	}
}

func TestManualAfterNonPositiveFiresImmediately(t *testing.T) {
	t.Parallel()
	m := clock.NewManual(time.Unix(0, 0))
	select {
	case <-m.After(0):
	default:
		t.Fatal("zero-duration timer did not fire immediately")
	}
}

func TestManualNowTracksAdvance(t *testing.T) {
	t.Parallel()
	start := time.Unix(1_700_000_000, 0).UTC()
	m := clock.NewManual(start)
	if got := m.Advance(time.Minute); !got.Equal(start.Add(time.Minute)) {
		t.Fatalf("Advance returned %v, want %v", got, start.Add(time.Minute))
	}
	if got := m.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Fatalf("Now = %v, want %v", got, start.Add(time.Minute))
	}
}
