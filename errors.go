package polystore

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("polystore: entity not found")

	// ErrResolution is matched by every ResolutionError, whatever its kind.
	ErrResolution = errors.New("polystore: resolution failed")

	// ErrCycle is returned when a traversal re-enters an entity that is still
	// being resolved and the cycle policy forbids short-circuiting.
	ErrCycle = errors.New("polystore: relationship cycle detected")

	// ErrMaxDepth is returned when a traversal exceeds its recursion bound.
	ErrMaxDepth = errors.New("polystore: maximum traversal depth exceeded")

	// ErrDuplicate is returned by store writers when an entity or join row
	// with the same key already exists.
	ErrDuplicate = errors.New("polystore: duplicate entity")

	// ErrUnsupported is returned by store clients for operations their
	// backend cannot serve (e.g. relation lookups without a secondary index).
	ErrUnsupported = errors.New("polystore: operation not supported by backend")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("polystore: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("polystore: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity type name.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ErrorKind classifies resolution failures.
type ErrorKind uint8

const (
	// KindLookup marks a failed store or search-index call.
	KindLookup ErrorKind = iota + 1
	// KindFieldAccess marks a failure to read or assign a relationship field.
	KindFieldAccess
	// KindCycle marks a forbidden re-entry into an entity being resolved.
	KindCycle
	// KindDepth marks a traversal that went deeper than allowed.
	KindDepth
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindLookup:
		return "lookup"
	case KindFieldAccess:
		return "field access"
	case KindCycle:
		return "cycle"
	case KindDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// ResolutionError is the single error type surfaced by a graph traversal.
// It carries the entity type and relationship being resolved when the
// failure happened, plus the original cause.
type ResolutionError struct {
	Kind     ErrorKind
	Type     string // Entity type being resolved
	Relation string // Relationship field, if any
	Err      error  // Underlying error
}

// Error returns the error string.
func (e *ResolutionError) Error() string {
	var sb strings.Builder
	sb.WriteString("polystore: resolving ")
	sb.WriteString(e.Type)
	if e.Relation != "" {
		sb.WriteString(".")
		sb.WriteString(e.Relation)
	}
	fmt.Fprintf(&sb, " (%s)", e.Kind)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrResolution or the sentinel of e's kind.
func (e *ResolutionError) Is(target error) bool {
	switch target {
	case ErrResolution:
		return true
	case ErrCycle:
		return e.Kind == KindCycle
	case ErrMaxDepth:
		return e.Kind == KindDepth
	}
	return false
}

// NewResolutionError returns a new ResolutionError.
func NewResolutionError(kind ErrorKind, typ, relation string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Type: typ, Relation: relation, Err: err}
}

// IsResolutionError returns true if the error is a ResolutionError.
func IsResolutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ResolutionError
	return errors.As(err, &e)
}

// IsAbsent reports whether err only says that a row does not exist. A
// NotFoundError carried by a ResolutionError failed somewhere inside a
// traversal and is not an absent row.
func IsAbsent(err error) bool {
	return IsNotFound(err) && !IsResolutionError(err)
}

// ResolutionKind returns the kind of the first ResolutionError in err's
// chain, or zero if there is none.
func ResolutionKind(err error) ErrorKind {
	var e *ResolutionError
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
