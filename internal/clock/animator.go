// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

// sampleIntervalMs is the sim-time cadence at which Animator emits progress
// samples, per spec.md §4.1.
const sampleIntervalMs = 50

// AnimationSpec configures a single animated "flight" (an in-transit packet or
// frame with a progress value in [0, 100]).
type AnimationSpec struct {
	DurationMs float64
	OnProgress func(percent float64)
	OnArrived  func()

	WillBeLost        bool
	LossCutoffPercent float64 // defaults to 50 if zero
	OnLost            func()
}

// Animator drives one or more flights off a Scheduler. It has no state of its
// own beyond what's needed to cancel in-flight animations; every sample is
// produced by re-scheduling the next tick on the owning Scheduler.
type Animator struct {
	sched *Scheduler
}

// NewAnimator binds an Animator to sched.
func NewAnimator(sched *Scheduler) *Animator {
	return &Animator{sched: sched}
}

// CancelFunc stops an in-progress animation. Calling it more than once is a no-op.
type CancelFunc func()

// Start begins a new flight and returns an idempotent cancel function.
//
// If spec.WillBeLost, progress is clamped at LossCutoffPercent (default 50),
// one terminal sample is emitted there, and OnLost is called exactly once.
// Otherwise a final sample of 100 is guaranteed and OnArrived is called exactly
// once.
func (a *Animator) Start(spec AnimationSpec) CancelFunc {
	cutoff := spec.LossCutoffPercent
	if cutoff <= 0 {
		cutoff = 50
	}

	id := NewCallbackID()
	canceled := false
	startedAt := a.sched.DeltaMs()

	var tick func()
	tick = func() {
		if canceled {
			return
		}
		elapsed := a.sched.DeltaMs() - startedAt
		percent := 100.0
		if spec.DurationMs > 0 {
			percent = (elapsed / spec.DurationMs) * 100
		}

		if spec.WillBeLost {
			if percent >= cutoff {
				if spec.OnProgress != nil {
					spec.OnProgress(cutoff)
				}
				if spec.OnLost != nil {
					spec.OnLost()
				}
				return
			}
			if spec.OnProgress != nil {
				spec.OnProgress(percent)
			}
			a.sched.Schedule(id, a.sched.DeltaMs()+sampleIntervalMs, tick)
			return
		}

		if percent >= 100 {
			if spec.OnProgress != nil {
				spec.OnProgress(100)
			}
			if spec.OnArrived != nil {
				spec.OnArrived()
			}
			return
		}
		if spec.OnProgress != nil {
			spec.OnProgress(percent)
		}
		a.sched.Schedule(id, a.sched.DeltaMs()+sampleIntervalMs, tick)
	}

	a.sched.Schedule(id, startedAt, tick)

	return func() {
		if canceled {
			return
		}
		canceled = true
		a.sched.Cancel(id)
	}
}
