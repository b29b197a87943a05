package allocation

import (
	"errors"
	"fmt"

	"github.com/iliyamo/desk-allocation/internal/repository"
)

// Kind classifies engine failures into the closed set surfaced to
// callers.  Store-availability failures are deliberately not part of
// the set; they propagate unchanged as transport-level errors.
type Kind int

const (
	// KindNotFound: the employee or the named desk does not exist.
	KindNotFound Kind = iota + 1
	// KindIneligible: a named-desk commit failed a hard policy check.
	KindIneligible
	// KindConflict: the compare-and-set race on the chosen desk was lost.
	KindConflict
	// KindNoSuitableDesk: every candidate was excluded by policy or
	// consumed by concurrent commits.
	KindNoSuitableDesk
	// KindInvalidQuery: malformed preference predicate, rejected before
	// any store access.
	KindInvalidQuery
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindIneligible:
		return "ineligible"
	case KindConflict:
		return "conflict"
	case KindNoSuitableDesk:
		return "no_suitable_desk"
	case KindInvalidQuery:
		return "invalid_preference_query"
	}
	return "unknown"
}

// Error is the engine's failure type: a taxonomy kind plus a
// human-readable reason.  Internal store state never leaks through it.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Reason) }

// KindOf extracts the taxonomy kind from err, or 0 when err is not an
// engine error (e.g. a store outage passed through).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

func ineligible(reason string) *Error {
	return &Error{Kind: KindIneligible, Reason: reason}
}

func conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

func noSuitableDesk(reason string) *Error {
	return &Error{Kind: KindNoSuitableDesk, Reason: reason}
}

func invalidQuery(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidQuery, Reason: fmt.Sprintf(format, args...)}
}

// wrapDeskErr converts the store's absence sentinel into the taxonomy;
// anything else (an unreachable store, a driver failure) passes through
// unchanged as a transport-level error.
func wrapDeskErr(err error, deskID uint64) error {
	if errors.Is(err, repository.ErrDeskNotFound) {
		return notFound("desk %d does not exist", deskID)
	}
	return err
}

// wrapDirectoryErr does the same for the employee directory.
func wrapDirectoryErr(err error, employeeID uint64) error {
	if errors.Is(err, repository.ErrEmployeeNotFound) {
		return notFound("employee %d does not exist", employeeID)
	}
	return err
}
