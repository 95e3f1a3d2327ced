package polystore_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := polystore.NewNotFoundError("Customer")
		assert.Equal(t, "polystore: Customer not found", err.Error())

		err = polystore.NewNotFoundErrorWithID("Order", "42")
		assert.Equal(t, "polystore: Order not found (id=42)", err.Error())
		assert.Equal(t, "Order", err.Label())
		assert.Equal(t, "42", err.ID())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := polystore.NewNotFoundError("LineItem")
		assert.True(t, errors.Is(err, polystore.ErrNotFound))
		assert.True(t, polystore.IsNotFound(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, polystore.IsNotFound(wrapped))
		assert.True(t, polystore.IsNotFound(polystore.ErrNotFound))

		assert.False(t, polystore.IsNotFound(errors.New("other error")))
		assert.False(t, polystore.IsNotFound(nil))
	})
}

func TestResolutionError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")

	tests := []struct {
		name     string
		err      *polystore.ResolutionError
		expected string
		is       []error
		isNot    []error
	}{
		{
			name:     "lookup with relation",
			err:      polystore.NewResolutionError(polystore.KindLookup, "Customer", "Orders", cause),
			expected: "polystore: resolving Customer.Orders (lookup): connection reset",
			is:       []error{polystore.ErrResolution, cause},
			isNot:    []error{polystore.ErrCycle, polystore.ErrMaxDepth},
		},
		{
			name:     "field access without relation",
			err:      polystore.NewResolutionError(polystore.KindFieldAccess, "Order", "", cause),
			expected: "polystore: resolving Order (field access): connection reset",
			is:       []error{polystore.ErrResolution},
		},
		{
			name:     "cycle",
			err:      polystore.NewResolutionError(polystore.KindCycle, "Order", "Customer", nil),
			expected: "polystore: resolving Order.Customer (cycle)",
			is:       []error{polystore.ErrResolution, polystore.ErrCycle},
			isNot:    []error{polystore.ErrMaxDepth},
		},
		{
			name:     "depth",
			err:      polystore.NewResolutionError(polystore.KindDepth, "Node", "Children", polystore.ErrMaxDepth),
			expected: "polystore: resolving Node.Children (depth): polystore: maximum traversal depth exceeded",
			is:       []error{polystore.ErrResolution, polystore.ErrMaxDepth},
			isNot:    []error{polystore.ErrCycle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
			for _, target := range tt.is {
				assert.ErrorIs(t, tt.err, target)
			}
			for _, target := range tt.isNot {
				assert.NotErrorIs(t, tt.err, target)
			}
		})
	}
}

func TestResolutionKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("find: %w", polystore.NewResolutionError(polystore.KindFieldAccess, "Order", "Items", nil))
	require.True(t, polystore.IsResolutionError(err))
	assert.Equal(t, polystore.KindFieldAccess, polystore.ResolutionKind(err))
	assert.Equal(t, "field access", polystore.ResolutionKind(err).String())

	assert.False(t, polystore.IsResolutionError(nil))
	assert.False(t, polystore.IsResolutionError(errors.New("plain")))
	assert.Equal(t, polystore.ErrorKind(0), polystore.ResolutionKind(errors.New("plain")))
	assert.Equal(t, "unknown", polystore.ErrorKind(0).String())
}

func TestIsAbsent(t *testing.T) {
	t.Parallel()

	missing := polystore.NewNotFoundErrorWithID("Profile", "p1")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not_found", missing, true},
		{"wrapped_not_found", fmt.Errorf("find: %w", missing), true},
		{"sentinel", polystore.ErrNotFound, true},
		{"nested_traversal", polystore.NewResolutionError(polystore.KindLookup, "Profile", "", missing), false},
		{"wrapped_traversal", fmt.Errorf("find: %w", polystore.NewResolutionError(polystore.KindLookup, "Customer", "Profile", missing)), false},
		{"other", errors.New("timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, polystore.IsAbsent(tt.err))
		})
	}
}
