package pacing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPacer_Ranges(t *testing.T) {
	p := New(WithSeed(42))

	for i := 0; i < 1000; i++ {
		if d := p.Duration(2*time.Second, 5*time.Second); d < 2*time.Second || d >= 5*time.Second {
			t.Fatalf("Duration out of range: %v", d)
		}
		if n := p.Int(3, 5); n < 3 || n > 5 {
			t.Fatalf("Int out of range: %d", n)
		}
		if f := p.Float(100, 200); f < 100 || f >= 200 {
			t.Fatalf("Float out of range: %v", f)
		}
	}
}

func TestPacer_DegenerateRanges(t *testing.T) {
	p := New(WithSeed(7))

	if d := p.Duration(time.Second, time.Second); d != time.Second {
		t.Errorf("Duration(lo, lo) = %v, want %v", d, time.Second)
	}
	if n := p.Int(5, 3); n != 5 {
		t.Errorf("Int(5, 3) = %d, want 5", n)
	}
	if f := p.Float(10, 0); f != 10 {
		t.Errorf("Float(10, 0) = %v, want 10", f)
	}
}

func TestPacer_SeedIsDeterministic(t *testing.T) {
	a, b := New(WithSeed(99)), New(WithSeed(99))
	for i := 0; i < 20; i++ {
		if a.Int(0, 1000) != b.Int(0, 1000) {
			t.Fatal("pacers with the same seed should produce the same sequence")
		}
	}
}

func TestPacer_PauseUsesSleep(t *testing.T) {
	var slept []time.Duration
	p := New(WithSeed(1), WithSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	if err := p.Pause(context.Background(), 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := p.Sleep(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}

	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(slept))
	}
	if slept[0] < 500*time.Millisecond || slept[0] >= 1500*time.Millisecond {
		t.Errorf("Pause slept %v, outside range", slept[0])
	}
	if slept[1] != 3*time.Second {
		t.Errorf("Sleep slept %v, want 3s", slept[1])
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() should return immediately on a cancelled context")
	}
}

func TestInstant_DoesNotBlock(t *testing.T) {
	p := Instant()
	start := time.Now()
	if err := p.Pause(context.Background(), time.Minute, 2*time.Minute); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Instant pacer should not sleep")
	}
}

func TestThrottle(t *testing.T) {
	if NewThrottle(0) != nil {
		t.Error("NewThrottle(0) should be nil")
	}

	var nilThrottle *Throttle
	if err := nilThrottle.Wait(context.Background()); err != nil {
		t.Errorf("nil throttle Wait() error = %v", err)
	}

	th := NewThrottle(60)
	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() should pass immediately, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := th.Wait(ctx); err == nil {
		t.Error("second Wait() within the same second should not be admitted before the deadline")
	}
}
