// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package modulation implements the bit/baud modulation animation kernel
// (spec.md §4.8): QAM constellation mapping, Gaussian noise injection, and
// symbol-error detection against the nearest ideal constellation point.
package modulation

import (
	"math"
	"math/rand"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/state"
)

// Scheme selects a modulation scheme and its bits-per-symbol.
type Scheme int

const (
	SchemeNone   Scheme = iota // 1 bit/symbol
	Scheme4QAM                 // 2 bits/symbol
	Scheme16QAM                // 4 bits/symbol
	Scheme64QAM                // 6 bits/symbol
	Scheme256QAM               // 8 bits/symbol
)

// BitsPerSymbol returns the scheme's fixed bit count per constellation symbol.
func (s Scheme) BitsPerSymbol() int {
	switch s {
	case SchemeNone:
		return 1
	case Scheme4QAM:
		return 2
	case Scheme16QAM:
		return 4
	case Scheme64QAM:
		return 6
	case Scheme256QAM:
		return 8
	default:
		return 1
	}
}

// ConstellationPoint is one ideal QAM symbol position with its bit label.
type ConstellationPoint struct {
	X, Y float64
	Bits string
}

// Symbol is one transmitted symbol, ideal and noise-perturbed.
type Symbol struct {
	IdealX, IdealY float64
	NoisyX, NoisyY float64
	HasError       bool
	DecodedBits    string
}

// State is the modulation kernel's complete, serializable snapshot.
type State struct {
	Scheme          Scheme
	BitRate         float64 // bits/sec
	NoiseLevel      float64 // 0-100
	BaudRate        float64
	TransmissionMs  float64
	Constellation   []ConstellationPoint
	Symbols         []Symbol
	IsRunning       bool
	Completed       bool
}

// CreateInitialState computes baud rate and transmission time per spec.md
// §4.8: baudRate = bitRate / bitsPerSymbol; transmissionTimeMs =
// ceil(16/bitsPerSymbol) / baudRate * 1000.
func CreateInitialState(scheme Scheme, bitRate, noiseLevel float64) State {
	bps := scheme.BitsPerSymbol()
	baud := bitRate / float64(bps)
	symbolsNeeded := math.Ceil(16.0 / float64(bps))
	transmissionMs := symbolsNeeded / baud * 1000

	return State{
		Scheme:         scheme,
		BitRate:        bitRate,
		NoiseLevel:     noiseLevel,
		BaudRate:       baud,
		TransmissionMs: transmissionMs,
		Constellation:  buildConstellation(bps),
	}
}

// buildConstellation lays out 2^bitsPerSymbol points on a regular square
// grid in [-1, 1] with unique sequential binary bit labels (not Gray-coded).
func buildConstellation(bitsPerSymbol int) []ConstellationPoint {
	n := 1 << bitsPerSymbol
	side := int(math.Ceil(math.Sqrt(float64(n))))
	points := make([]ConstellationPoint, 0, n)
	for i := 0; i < n; i++ {
		row := i / side
		col := i % side
		x := -1 + 2*float64(col)/float64(side-1+boolToInt(side == 1))
		y := -1 + 2*float64(row)/float64(side-1+boolToInt(side == 1))
		points = append(points, ConstellationPoint{
			X:    x,
			Y:    y,
			Bits: toBinary(i, bitsPerSymbol),
		})
	}
	return points
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toBinary(v, width int) string {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		if v&1 == 1 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		v >>= 1
	}
	return string(b)
}

// Kernel animates one modulation transmission: a sequence of symbols drawn
// from the constellation, perturbed by Gaussian noise, then decoded against
// the nearest ideal point.
type Kernel struct {
	subject  *state.Subject[State]
	sched    *clock.Scheduler
	animator *clock.Animator
	rng      *rand.Rand
	symTimer clock.CallbackID
}

// New constructs a Kernel over initial, bound to sched.
func New(sched *clock.Scheduler, initial State) *Kernel {
	return &Kernel{
		subject:  state.NewSubject(initial, nil),
		sched:    sched,
		animator: clock.NewAnimator(sched),
		rng:      rand.New(rand.NewSource(1)),
	}
}

func (k *Kernel) SetListener(fn func(State)) { k.subject.SetListener(fn) }
func (k *Kernel) GetState() State            { return k.subject.GetState() }

// SymbolCount is how many symbols Start transmits per run.
const SymbolCount = 8

// Start transmits SymbolCount symbols, each perturbed independently by
// Gaussian noise proportional to NoiseLevel/100.
func (k *Kernel) Start() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = true })
	k.sendSymbol(0)
}

func (k *Kernel) sendSymbol(index int) {
	snap := k.GetState()
	if index >= SymbolCount {
		state.MutateVoid(k.subject, func(s *State) {
			s.Completed = true
			s.IsRunning = false
		})
		return
	}

	ideal := snap.Constellation[k.rng.Intn(len(snap.Constellation))]
	stddev := snap.NoiseLevel / 100
	noisyX := ideal.X + k.rng.NormFloat64()*stddev
	noisyY := ideal.Y + k.rng.NormFloat64()*stddev
	decoded := nearestPoint(snap.Constellation, noisyX, noisyY)
	hasError := decoded.Bits != ideal.Bits

	sym := Symbol{IdealX: ideal.X, IdealY: ideal.Y, NoisyX: noisyX, NoisyY: noisyY, HasError: hasError, DecodedBits: decoded.Bits}
	state.MutateVoid(k.subject, func(s *State) {
		s.Symbols = append(s.Symbols, sym)
	})

	k.symTimer = clock.NewCallbackID()
	k.sched.Schedule(k.symTimer, k.sched.DeltaMs()+snap.TransmissionMs, func() {
		k.sendSymbol(index + 1)
	})
}

func nearestPoint(points []ConstellationPoint, x, y float64) ConstellationPoint {
	best := points[0]
	bestDist := math.MaxFloat64
	for _, p := range points {
		dx, dy := p.X-x, p.Y-y
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best
}

// Stop cancels the in-flight symbol timer.
func (k *Kernel) Stop() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = false })
	k.sched.Cancel(k.symTimer)
}

// Reset restores initial state, preserving Scheme/BitRate/NoiseLevel.
func (k *Kernel) Reset() {
	k.Stop()
	state.MutateVoid(k.subject, func(s *State) {
		*s = CreateInitialState(s.Scheme, s.BitRate, s.NoiseLevel)
	})
}

func (k *Kernel) Dispose() { k.Stop() }
