package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore/search"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                                   string
		typeField, typeValue, idField, idValue string
		entityType                             string
		want                                   string
	}{
		{
			name:      "with_entity_type",
			typeField: "parentClass", typeValue: "order",
			idField: "parentId", idValue: "42",
			entityType: "lineitem",
			want:       "+parentClass:order AND +parentId:42 AND +entityClass:lineitem",
		},
		{
			name:      "without_entity_type",
			typeField: search.EntityClassField, typeValue: "category",
			idField: search.EntityIDField, idValue: "C1",
			want: "+entityClass:category AND +entityId:C1",
		},
		{
			name:      "empty_id",
			typeField: "parentClass", typeValue: "order",
			idField: "parentId", idValue: "",
			entityType: "lineitem",
			want:       "+parentClass:order AND +parentId: AND +entityClass:lineitem",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := search.BuildQuery(tt.typeField, tt.typeValue, tt.idField, tt.idValue, tt.entityType)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	clauses, err := search.Parse("+parentClass:order AND +parentId:42 AND +entityClass:lineitem")
	require.NoError(t, err)
	assert.Equal(t, []search.Clause{
		{Field: "parentClass", Value: "order"},
		{Field: "parentId", Value: "42"},
		{Field: "entityClass", Value: "lineitem"},
	}, clauses)

	clauses, err = search.Parse("+parentId:urn:x:1")
	require.NoError(t, err)
	assert.Equal(t, "urn:x:1", clauses[0].Value)

	_, err = search.Parse("")
	assert.Error(t, err)
	_, err = search.Parse("+parentClass")
	assert.Error(t, err)
}

func TestTypeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lineitem", search.TypeName("LineItem"))
	assert.Equal(t, "order", search.TypeName("order"))
}

func TestMemIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := search.NewMemIndex()
	require.NoError(t, ix.Add(ctx,
		search.NewDocument("LineItem", "L1", "Order", "42"),
		search.NewDocument("LineItem", "L2", "Order", "42"),
		search.NewDocument("LineItem", "L3", "Order", "43"),
		search.NewDocument("Note", "N1", "Order", "42"),
	))
	assert.Equal(t, 4, ix.Len())

	t.Run("search", func(t *testing.T) {
		got, err := ix.Search(ctx, search.BuildQuery(search.ParentClassField, "order", search.ParentIDField, "42", "lineitem"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"L1", "L2"}, values(got))
	})

	t.Run("fetch_relation", func(t *testing.T) {
		got, err := ix.FetchRelation(ctx, search.BuildQuery(search.EntityClassField, "lineitem", search.EntityIDField, "L3", ""))
		require.NoError(t, err)
		assert.Equal(t, []string{"43"}, values(got))
	})

	t.Run("no_match", func(t *testing.T) {
		got, err := ix.Search(ctx, search.BuildQuery(search.ParentClassField, "order", search.ParentIDField, "99", ""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown_field", func(t *testing.T) {
		_, err := ix.Search(ctx, "+color:red AND +parentId:42")
		assert.Error(t, err)
	})
}

func TestMemIndexRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ix := search.NewMemIndex()
	doc := search.NewDocument("LineItem", "L1", "Order", "42")
	require.NoError(t, ix.Add(ctx, doc, doc))
	assert.Equal(t, 1, ix.Len())

	require.NoError(t, ix.Remove(ctx, doc.Key()))
	assert.Equal(t, 0, ix.Len())

	got, err := ix.Search(ctx, search.BuildQuery(search.ParentClassField, "order", search.ParentIDField, "42", ""))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(1), ix.Queries())
}

func values(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
