package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/polystore/store"
)

type order struct{ ID string }

func TestEntity(t *testing.T) {
	t.Parallel()

	t.Run("raw", func(t *testing.T) {
		t.Parallel()
		o := &order{ID: "o1"}
		e := store.RawEntity(o)
		assert.Equal(t, store.Raw, e.Form())
		assert.Same(t, o, e.Object())
		assert.Empty(t, e.ID())
		_, ok := e.Relation("customer_id")
		assert.False(t, ok)
	})

	t.Run("wrapped", func(t *testing.T) {
		t.Parallel()
		o := &order{ID: "o1"}
		e := store.WrapEntity(o, "o1", map[string]any{"customer_id": 7, "empty": "", "null": nil})
		assert.Equal(t, store.Wrapped, e.Form())
		assert.Equal(t, "wrapped", e.Form().String())
		assert.Equal(t, "o1", e.ID())

		v, ok := e.RelationString("customer_id")
		assert.True(t, ok)
		assert.Equal(t, "7", v)

		_, ok = e.Relation("empty")
		assert.False(t, ok)
		_, ok = e.Relation("null")
		assert.False(t, ok)

		rel := e.Relations()
		rel["customer_id"] = 8
		v, _ = e.RelationString("customer_id")
		assert.Equal(t, "7", v)
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()
		assert.True(t, store.Entity{}.IsZero())
	})
}
