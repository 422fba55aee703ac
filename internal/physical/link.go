// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package physical

import nserrors "grimm.is/netsim/internal/errors"

// cFiberKmPerSec is the light-in-fiber propagation speed assumed by the
// simulator (spec.md §4.3: c_fiber ≈ 2·10^5 km/s).
const cFiberKmPerSec = 2e5

// Link exclusively owns its two endpoints by reference. A Link without both
// endpoints set is invalid and must not be used to Transmit.
type Link struct {
	LengthMeters float64

	a *HardwareInterface
	b *HardwareInterface
}

// NewLink connects a and b with a cable of the given length, plugging both
// interfaces in. It returns KindValidation if either endpoint is already
// connected to another link.
func NewLink(a, b *HardwareInterface, lengthMeters float64) (*Link, error) {
	if a == nil || b == nil {
		return nil, nserrors.New(nserrors.KindValidation, "link requires two non-nil endpoints")
	}
	if a.connectedLink != nil || b.connectedLink != nil {
		return nil, nserrors.New(nserrors.KindValidation, "interface is already connected to a link")
	}
	l := &Link{LengthMeters: lengthMeters, a: a, b: b}
	a.connectedLink = l
	b.connectedLink = l
	return l, nil
}

// Other returns the endpoint opposite from, or nil if from isn't one of the
// link's endpoints.
func (l *Link) Other(from *HardwareInterface) *HardwareInterface {
	switch from {
	case l.a:
		return l.b
	case l.b:
		return l.a
	default:
		return nil
	}
}

// Endpoints returns both sides of the link.
func (l *Link) Endpoints() (a, b *HardwareInterface) { return l.a, l.b }

// PropagationDelayMs is length/c_fiber expressed in simulated milliseconds.
func (l *Link) PropagationDelayMs() float64 {
	km := l.LengthMeters / 1000
	seconds := km / cFiberKmPerSec
	return seconds * 1000
}

// Valid reports whether both endpoints are present, per spec.md §3.
func (l *Link) Valid() bool {
	return l.a != nil && l.b != nil
}

// Unplug disconnects both endpoints, e.g. when a link is removed from a
// topology. The Link itself should be discarded afterward.
func (l *Link) Unplug() {
	if l.a != nil {
		l.a.connectedLink = nil
	}
	if l.b != nil {
		l.b.connectedLink = nil
	}
	l.a, l.b = nil, nil
}
