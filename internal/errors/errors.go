// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package errors provides the kind-tagged error taxonomy shared by every layer of the
// simulator. Configuration-layer errors (KindFormat, KindInvalidMask) propagate to the
// caller; data-plane errors (KindNoRoute, KindHostUnreachable, KindFragmentationRequired,
// KindDroppedByPolicy) are recorded as diagnostic events on the owning node and never
// thrown across layers. KindTimeout resolves to a boolean/empty result. Only
// KindInvariantViolation is fatal.
package errors

import (
	"errors"
	"fmt"
)

// Kind defines the category of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	KindValidation
	KindFormat               // bad MAC/IP/mask input from configuration
	KindInvalidMask          // non-contiguous netmask
	KindNoRoute              // routing lookup failed
	KindHostUnreachable      // ARP resolution timed out
	KindFragmentationRequired // egress MTU exceeded with DF=1
	KindTimeout              // ICMP echo / DHCP discover gave up
	KindDroppedByPolicy      // STP Blocking / filtered frame
	KindInvariantViolation   // fatal bug, surface with full context
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindFormat:
		return "format"
	case KindInvalidMask:
		return "invalid_mask"
	case KindNoRoute:
		return "no_route"
	case KindHostUnreachable:
		return "host_unreachable"
	case KindFragmentationRequired:
		return "fragmentation_required"
	case KindTimeout:
		return "timeout"
	case KindDroppedByPolicy:
		return "dropped_by_policy"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind should halt the process. Every kind but
// KindInvariantViolation is recoverable.
func (k Kind) Fatal() bool {
	return k == KindInvariantViolation
}

// Error represents a structured error in the netsim system.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// New creates a new Error of the specified kind.
func New(kind Kind, msg string) error {
	return &Error{
		Kind:    kind,
		Message: msg,
	}
}

// Errorf creates a new Error of the specified kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error as a new Error of the specified kind.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:       kind,
		Message:    msg,
		Underlying: err,
	}
}

// Wrapf wraps an existing error as a new Error of the specified kind with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Underlying: err,
	}
}

// Attr attaches an attribute to an error. If the error is not an *Error, it wraps it as KindInternal.
func Attr(err error, key string, val any) error {
	if err == nil {
		return nil
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{
			Kind:       KindInternal,
			Message:    err.Error(),
			Underlying: err,
		}
	}

	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = val
	return e
}

// GetKind returns the Kind of the error, or KindUnknown if it's not a netsim error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetAttributes returns all attributes associated with the error and its chain.
func GetAttributes(err error) map[string]any {
	attrs := make(map[string]any)
	var e *Error

	// Walk the chain collecting attributes, though typically there's only
	// one *Error in it.
	tempErr := err
	for tempErr != nil {
		if errors.As(tempErr, &e) {
			for k, v := range e.Attributes {
				if _, ok := attrs[k]; !ok {
					attrs[k] = v
				}
			}
			tempErr = e.Underlying
		} else {
			break
		}
	}

	return attrs
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if err's type contains an Unwrap method returning error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
