// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

import (
	"testing"
	"time"
)

func pumpUntil(s *Scheduler, done func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for !done() && time.Now().Before(deadline) {
		s.Pump()
	}
}

func TestAnimatorArrivesAt100(t *testing.T) {
	s := New()
	a := NewAnimator(s)
	s.SetSpeed(Faster)

	var last float64
	arrived := false
	a.Start(AnimationSpec{
		DurationMs: 200,
		OnProgress: func(p float64) { last = p },
		OnArrived:  func() { arrived = true },
	})

	pumpUntil(s, func() bool { return arrived }, 2*time.Second)

	if !arrived {
		t.Fatal("expected OnArrived to fire")
	}
	if last != 100 {
		t.Fatalf("expected final progress 100, got %v", last)
	}
}

func TestAnimatorLossClampsAtCutoff(t *testing.T) {
	s := New()
	a := NewAnimator(s)
	s.SetSpeed(Faster)

	lost := false
	var last float64
	a.Start(AnimationSpec{
		DurationMs:        200,
		WillBeLost:        true,
		LossCutoffPercent: 50,
		OnProgress:        func(p float64) { last = p },
		OnLost:            func() { lost = true },
	})

	pumpUntil(s, func() bool { return lost }, 2*time.Second)

	if !lost {
		t.Fatal("expected OnLost to fire")
	}
	if last != 50 {
		t.Fatalf("expected terminal progress 50, got %v", last)
	}
}

func TestAnimatorCancelIsIdempotent(t *testing.T) {
	s := New()
	a := NewAnimator(s)
	s.SetSpeed(Faster)

	cancel := a.Start(AnimationSpec{DurationMs: 1000})
	cancel()
	cancel() // must not panic
}
