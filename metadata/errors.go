package metadata

import (
	"errors"
	"strings"
)

// ErrInvalidCatalog indicates a catalog definition error.
var ErrInvalidCatalog = errors.New("polystore: invalid catalog")

// CatalogError describes an invalid entity or relationship definition.
type CatalogError struct {
	Type     string // Entity type name
	Relation string // Relation name (if applicable)
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	var b strings.Builder
	b.WriteString("polystore: catalog error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Relation != "" {
		b.WriteString(" relation ")
		b.WriteString(e.Relation)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *CatalogError) Unwrap() error { return e.Cause }

// Is reports whether the target matches ErrInvalidCatalog.
func (e *CatalogError) Is(target error) bool { return target == ErrInvalidCatalog }

func catalogError(typ, rel, msg string, cause error) *CatalogError {
	return &CatalogError{Type: typ, Relation: rel, Message: msg, Cause: cause}
}
