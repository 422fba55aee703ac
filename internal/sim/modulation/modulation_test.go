// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package modulation

import (
	"testing"

	"grimm.is/netsim/internal/clock"
)

func pump(sched *clock.Scheduler, ms float64) {
	sched.SetSpeed(clock.Faster)
	start := sched.DeltaMs()
	for sched.DeltaMs()-start < ms {
		sched.Pump()
	}
	sched.SetSpeed(clock.Paused)
}

func TestBaudRateAndTransmissionTimeMatchFormula(t *testing.T) {
	s := CreateInitialState(Scheme16QAM, 8000, 0)
	// bitsPerSymbol=4, baud = 8000/4 = 2000
	if s.BaudRate != 2000 {
		t.Fatalf("expected baud rate 2000, got %v", s.BaudRate)
	}
	// ceil(16/4)=4 symbols / 2000 baud * 1000 = 2ms
	if s.TransmissionMs != 2 {
		t.Fatalf("expected transmission time 2ms, got %v", s.TransmissionMs)
	}
}

func TestConstellationHasUniqueLabelsForEachScheme(t *testing.T) {
	for _, scheme := range []Scheme{SchemeNone, Scheme4QAM, Scheme16QAM, Scheme64QAM, Scheme256QAM} {
		s := CreateInitialState(scheme, 1000, 0)
		want := 1 << scheme.BitsPerSymbol()
		if len(s.Constellation) != want {
			t.Fatalf("scheme %v: expected %d points, got %d", scheme, want, len(s.Constellation))
		}
		seen := make(map[string]bool)
		for _, p := range s.Constellation {
			if seen[p.Bits] {
				t.Fatalf("scheme %v: duplicate bit label %s", scheme, p.Bits)
			}
			seen[p.Bits] = true
		}
	}
}

func TestZeroNoiseNeverProducesErrors(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Scheme64QAM, 4000, 0))
	k.Start()
	pump(sched, 1000)

	s := k.GetState()
	if len(s.Symbols) != SymbolCount {
		t.Fatalf("expected %d symbols transmitted, got %d", SymbolCount, len(s.Symbols))
	}
	for i, sym := range s.Symbols {
		if sym.HasError {
			t.Fatalf("symbol %d: expected no error at zero noise", i)
		}
	}
	if !s.Completed {
		t.Fatal("expected transmission to complete")
	}
}

func TestResetPreservesSchemeAndBitRate(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Scheme4QAM, 2000, 30))
	k.Start()
	pump(sched, 100)
	k.Reset()

	s := k.GetState()
	if s.Scheme != Scheme4QAM || s.BitRate != 2000 || s.NoiseLevel != 30 {
		t.Fatalf("expected config preserved across reset, got %+v", s)
	}
	if len(s.Symbols) != 0 {
		t.Fatalf("expected symbols cleared after reset, got %d", len(s.Symbols))
	}
}
