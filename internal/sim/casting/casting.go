// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package casting implements the L2 cast-type animation kernel (spec.md
// §4.8): a fixed 8-node topology (one source, two switches, five PCs)
// animating unicast, broadcast, multicast, and anycast delivery.
package casting

import (
	"sync/atomic"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/state"
)

// CastType selects one of the four delivery semantics spec.md describes.
type CastType int

const (
	Unicast CastType = iota
	Broadcast
	Multicast
	Anycast
)

// node names the topology's 8 fixed nodes: one source, two switches, five PCs.
const (
	NodeSource = "source"
	NodeSwA    = "switch-a"
	NodeSwB    = "switch-b"
	NodePC1    = "pc1"
	NodePC2    = "pc2"
	NodePC3    = "pc3"
	NodePC4    = "pc4"
	NodePC5    = "pc5"
)

// topology is the fixed undirected link graph: source -> switch-a -> {pc1,
// pc2, switch-b}, switch-b -> {pc3, pc4, pc5}.
var topology = map[string][]string{
	NodeSource: {NodeSwA},
	NodeSwA:    {NodeSource, NodePC1, NodePC2, NodeSwB},
	NodeSwB:    {NodeSwA, NodePC3, NodePC4, NodePC5},
	NodePC1:    {NodeSwA},
	NodePC2:    {NodeSwA},
	NodePC3:    {NodeSwB},
	NodePC4:    {NodeSwB},
	NodePC5:    {NodeSwB},
}

var allPCs = []string{NodePC1, NodePC2, NodePC3, NodePC4, NodePC5}

// multicastGroup is the fixed subscriber set multicast delivers to.
var multicastGroup = []string{NodePC1, NodePC3, NodePC5}

// Flight is one animated packet traveling one hop of a path.
type Flight struct {
	PathID   int
	HopIndex int
	From, To string
	Progress float64
}

// State is the casting kernel's complete, serializable snapshot.
type State struct {
	CastType CastType
	SpeedMs  float64

	Flying    []Flight
	IsRunning bool
	Completed bool

	UnicastSent   int64
	BroadcastSent int64
	MulticastSent int64
	AnycastSent   int64
	TotalPackets  int64
	TotalHops     int64
}

// CreateInitialState builds a fresh, paused casting state for castType.
func CreateInitialState(castType CastType, speedMs float64) State {
	return State{CastType: castType, SpeedMs: speedMs}
}

// Kernel animates one cast event at a time over the fixed topology.
type Kernel struct {
	subject  *state.Subject[State]
	sched    *clock.Scheduler
	animator *clock.Animator
	nextPath int64

	unicastSent   atomic.Int64
	broadcastSent atomic.Int64
	multicastSent atomic.Int64
	anycastSent   atomic.Int64
	totalPackets  atomic.Int64
	totalHops     atomic.Int64
}

// New constructs a Kernel over initial, bound to sched.
func New(sched *clock.Scheduler, initial State) *Kernel {
	return &Kernel{
		subject:  state.NewSubject(initial, nil),
		sched:    sched,
		animator: clock.NewAnimator(sched),
	}
}

func (k *Kernel) SetListener(fn func(State)) { k.subject.SetListener(fn) }

// GetState returns a snapshot, with the atomic counters folded in.
func (k *Kernel) GetState() State {
	s := k.subject.GetState()
	s.UnicastSent = k.unicastSent.Load()
	s.BroadcastSent = k.broadcastSent.Load()
	s.MulticastSent = k.multicastSent.Load()
	s.AnycastSent = k.anycastSent.Load()
	s.TotalPackets = k.totalPackets.Load()
	s.TotalHops = k.totalHops.Load()
	return s
}

// Start sends one cast event from the source, fanning out per CastType.
func (k *Kernel) Start() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = true })
	targets := k.targets()
	for _, target := range targets {
		path := bfsPath(NodeSource, target)
		k.animatePath(path)
	}
	switch k.GetState().CastType {
	case Unicast:
		k.unicastSent.Add(1)
	case Broadcast:
		k.broadcastSent.Add(1)
	case Multicast:
		k.multicastSent.Add(1)
	case Anycast:
		k.anycastSent.Add(1)
	}
	k.totalPackets.Add(int64(len(targets)))
}

// targets resolves the destination set for the configured CastType.
// Anycast picks the single minimum-hop-count PC from the source, breaking
// ties by iteration order over allPCs.
func (k *Kernel) targets() []string {
	switch k.GetState().CastType {
	case Unicast:
		return []string{NodePC1}
	case Broadcast:
		return allPCs
	case Multicast:
		return multicastGroup
	case Anycast:
		best := ""
		bestHops := -1
		for _, pc := range allPCs {
			hops := len(bfsPath(NodeSource, pc)) - 1
			if bestHops == -1 || hops < bestHops {
				bestHops = hops
				best = pc
			}
		}
		return []string{best}
	default:
		return nil
	}
}

func (k *Kernel) animatePath(path []string) {
	if len(path) < 2 {
		return
	}
	pathID := int(atomic.AddInt64(&k.nextPath, 1))
	k.totalHops.Add(int64(len(path) - 1))
	k.animateHop(pathID, path, 0)
}

func (k *Kernel) animateHop(pathID int, path []string, hop int) {
	from, to := path[hop], path[hop+1]
	state.MutateVoid(k.subject, func(s *State) {
		s.Flying = append(s.Flying, Flight{PathID: pathID, HopIndex: hop, From: from, To: to})
	})
	k.animator.Start(clock.AnimationSpec{
		DurationMs: k.GetState().SpeedMs,
		OnProgress: func(pct float64) {
			state.MutateVoid(k.subject, func(s *State) {
				for i := range s.Flying {
					if s.Flying[i].PathID == pathID && s.Flying[i].HopIndex == hop {
						s.Flying[i].Progress = pct
					}
				}
			})
		},
		OnArrived: func() {
			state.MutateVoid(k.subject, func(s *State) {
				out := s.Flying[:0]
				for _, f := range s.Flying {
					if !(f.PathID == pathID && f.HopIndex == hop) {
						out = append(out, f)
					}
				}
				s.Flying = out
			})
			if hop+1 < len(path)-1 {
				k.animateHop(pathID, path, hop+1)
			} else {
				k.maybeComplete()
			}
		},
	})
}

func (k *Kernel) maybeComplete() {
	state.MutateVoid(k.subject, func(s *State) {
		if len(s.Flying) == 0 {
			s.Completed = true
			s.IsRunning = false
		}
	})
}

// bfsPath finds the shortest path from src to dst over the fixed topology.
// The topology is a tree, so the path is unique; BFS still drives it to stay
// consistent with how a general topology would be explored.
func bfsPath(src, dst string) []string {
	if src == dst {
		return []string{src}
	}
	prev := map[string]string{src: ""}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			break
		}
		for _, next := range topology[cur] {
			if _, seen := prev[next]; !seen {
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	if _, ok := prev[dst]; !ok {
		return nil
	}
	var path []string
	for n := dst; n != ""; n = prev[n] {
		path = append([]string{n}, path...)
	}
	return path
}

// Reset clears flight state and counters, preserving CastType and SpeedMs.
func (k *Kernel) Reset() {
	k.unicastSent.Store(0)
	k.broadcastSent.Store(0)
	k.multicastSent.Store(0)
	k.anycastSent.Store(0)
	k.totalPackets.Store(0)
	k.totalHops.Store(0)
	state.MutateVoid(k.subject, func(s *State) {
		*s = CreateInitialState(s.CastType, s.SpeedMs)
	})
}

func (k *Kernel) Stop()    { state.MutateVoid(k.subject, func(s *State) { s.IsRunning = false }) }
func (k *Kernel) Dispose() { k.Stop() }
