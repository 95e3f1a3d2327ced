package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/polystore"
	"github.com/syssam/polystore/internal/fixture"
	"github.com/syssam/polystore/metadata"
	"github.com/syssam/polystore/schema/relation"
	"github.com/syssam/polystore/store/memstore"
)

type warehouse struct {
	ID   string `db:"id"`
	City string `db:"city"`
}

type shipment struct {
	ID     string `db:"id"`
	Origin *warehouse
	Return *warehouse
}

type account struct {
	ID       string `db:"id"`
	Settings []*settings
}

type settings struct {
	ID    string `db:"id"`
	Theme string `db:"theme"`
}

// badLink declares a relation whose field type does not match its target.
type badLink struct {
	ID     string `db:"id"`
	Target *settings
}

func localCatalog(t *testing.T) *metadata.Catalog {
	t.Helper()
	c, err := metadata.New([]metadata.Schema{
		{Proto: &warehouse{}, Name: "Warehouse"},
		{Proto: &shipment{}, Name: "Shipment", Relations: []*relation.Builder{
			relation.From("Origin", "Warehouse").Column("origin_id"),
			relation.From("Return", "Warehouse").Column("return_id"),
		}},
		{Proto: &account{}, Name: "Account", Relations: []*relation.Builder{
			relation.To("Settings", "Settings").SharedPrimaryKey(),
		}},
		{Proto: &settings{}, Name: "Settings"},
		{Proto: &badLink{}, Name: "BadLink", Relations: []*relation.Builder{
			relation.From("Target", "Warehouse").Column("target_id"),
		}},
	})
	require.NoError(t, err)
	return c
}

func localSeed() fixture.Seed {
	return fixture.Seed{Rows: []fixture.Row{
		{Type: "Warehouse", ID: "w1", Object: &warehouse{ID: "w1", City: "Oslo"}},
		{Type: "Shipment", ID: "s1", Object: &shipment{ID: "s1"}, Relations: map[string]any{"origin_id": "w1", "return_id": "w1"}},
		{Type: "Account", ID: "a1", Object: &account{ID: "a1"}},
		{Type: "Settings", ID: "a1", Object: &settings{ID: "a1", Theme: "dark"}},
		{Type: "BadLink", ID: "b1", Object: &badLink{ID: "b1"}, Relations: map[string]any{"target_id": "w1"}},
	}}
}

func TestManyToOneFetchedOnce(t *testing.T) {
	t.Parallel()

	c := localCatalog(t)
	e := newEnv(t, c, localSeed(), nil)
	obj, err := e.resolve(t, "Shipment", "s1")
	require.NoError(t, err)
	s1 := obj.(*shipment)

	require.NotNil(t, s1.Origin)
	assert.Same(t, s1.Origin, s1.Return)
	assert.Equal(t, "Oslo", s1.Origin.City)
	assert.Equal(t, 1, e.finder.finds["Warehouse/w1"])
}

func TestSharedPrimaryKey(t *testing.T) {
	t.Parallel()

	c := localCatalog(t)
	e := newEnv(t, c, localSeed(), []memstore.Option{memstore.WithSecondaryIndex(false)})
	obj, err := e.resolve(t, "Account", "a1")
	require.NoError(t, err)
	a1 := obj.(*account)
	require.Len(t, a1.Settings, 1)
	assert.Equal(t, "dark", a1.Settings[0].Theme)
	assert.Zero(t, e.store.SearchIndex().Queries())
	assert.Equal(t, 1, e.finder.finds["Settings/a1"])
}

func TestFieldAccessFailure(t *testing.T) {
	t.Parallel()

	c := localCatalog(t)
	e := newEnv(t, c, localSeed(), nil)
	_, err := e.resolve(t, "BadLink", "b1")
	require.Error(t, err)
	assert.ErrorIs(t, err, polystore.ErrResolution)
	assert.Equal(t, polystore.KindFieldAccess, polystore.ResolutionKind(err))

	var re *polystore.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "BadLink", re.Type)
	assert.Equal(t, "Target", re.Relation)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	e := fixtureEnv(t, false, WithMetrics(m))
	_, err = e.resolve(t, "Order", "o1")
	require.NoError(t, err)

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP polystore_resolver_traversals_total Total number of graph traversals
# TYPE polystore_resolver_traversals_total counter
polystore_resolver_traversals_total 1
`), "polystore_resolver_traversals_total"))
	assert.Positive(t, testutil.ToFloat64(m.fetches.WithLabelValues(StrategySearchIndex)))
	assert.Zero(t, testutil.ToFloat64(m.fetches.WithLabelValues(StrategySecondaryIndex)))
	assert.Positive(t, testutil.ToFloat64(m.fetches.WithLabelValues(StrategyFinder)))
	assert.Positive(t, testutil.ToFloat64(m.cacheHits)+testutil.ToFloat64(m.cacheMisses))
	assert.Positive(t, testutil.ToFloat64(m.links.WithLabelValues(relation.OneToMany.String())))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration")
}

func TestMetricsRecordsErrors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	e := fixtureEnv(t, true, WithMetrics(m), WithMaxDepth(1))
	_, err = e.resolve(t, "Order", "o1")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues(polystore.KindDepth.String())))
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.recordFetch(StrategyFind)
	m.recordCache(true)
	m.recordLink("one_to_many")
	e := fixtureEnv(t, true)
	_, err := e.resolve(t, "Order", "o1")
	require.NoError(t, err)
}

func TestUnmappedManyToMany(t *testing.T) {
	t.Parallel()

	type tag struct {
		ID    string `db:"id"`
		Peers []*tag
	}
	c, err := metadata.New([]metadata.Schema{
		{Proto: &tag{}, Name: "Tag", Relations: []*relation.Builder{
			relation.To("Peers", "Tag").ManyToMany(),
		}},
	})
	require.NoError(t, err)
	seed := fixture.Seed{Rows: []fixture.Row{{Type: "Tag", ID: "t1", Object: &tag{ID: "t1"}}}}
	e := newEnv(t, c, seed, nil)
	obj, err := e.resolve(t, "Tag", "t1")
	require.NoError(t, err)
	assert.Nil(t, obj.(*tag).Peers)
	assert.Zero(t, e.store.Stats().ColumnQueries)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	e := fixtureEnv(t, true)
	ent, err := e.store.Find(context.Background(), "Order", "o1")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.resolver.Resolve(ctx, "Order", ent)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, polystore.KindLookup, polystore.ResolutionKind(err))
}

// catalogGapFinder fails metadata lookups for one type, as when a
// reloaded catalog drops a type mid-traversal.
type catalogGapFinder struct {
	*storeFinder
	missing string
}

func (f *catalogGapFinder) Metadata(typ string) (*metadata.Entity, error) {
	if typ == f.missing {
		return nil, polystore.NewNotFoundError(typ)
	}
	return f.storeFinder.Metadata(typ)
}

func TestNestedNotFoundIsNotAbsence(t *testing.T) {
	t.Parallel()

	c, err := fixture.Catalog("")
	require.NoError(t, err)
	s := memstore.New(c)
	require.NoError(t, fixture.Load(context.Background(), s, fixture.Data()))
	f := &storeFinder{catalog: c, client: s, finds: make(map[string]int)}
	r := New(&catalogGapFinder{storeFinder: f, missing: "Profile"})
	f.resolver = r

	ent, err := s.Find(context.Background(), "Order", "o1")
	require.NoError(t, err)
	obj, err := r.Resolve(context.Background(), "Order", ent)
	require.Error(t, err)
	assert.Nil(t, obj)
	assert.ErrorIs(t, err, polystore.ErrResolution)
	assert.False(t, polystore.IsAbsent(err))
	assert.Equal(t, polystore.KindLookup, polystore.ResolutionKind(err))

	var re *polystore.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Profile", re.Type)
}

type person struct {
	ID      string `db:"id"`
	Friends []*person
}

func TestSelfReferenceManyToMany(t *testing.T) {
	t.Parallel()

	c, err := metadata.New([]metadata.Schema{
		{Proto: &person{}, Name: "Person", Relations: []*relation.Builder{
			relation.To("Friends", "Person").ManyToMany().Through("friends", "a_id", "b_id").Ref("Friends"),
		}},
	})
	require.NoError(t, err)
	seed := fixture.Seed{
		Rows: []fixture.Row{
			{Type: "Person", ID: "x", Object: &person{ID: "x"}},
			{Type: "Person", ID: "y", Object: &person{ID: "y"}},
			{Type: "Person", ID: "z", Object: &person{ID: "z"}},
		},
		Links: []fixture.Link{
			{Table: "friends", OwnColumn: "a_id", OtherColumn: "b_id", Own: "x", Other: "y"},
			{Table: "friends", OwnColumn: "a_id", OtherColumn: "b_id", Own: "y", Other: "x"},
			{Table: "friends", OwnColumn: "a_id", OtherColumn: "b_id", Own: "y", Other: "z"},
		},
	}

	for _, secondary := range []bool{true, false} {
		e := newEnv(t, c, seed, []memstore.Option{memstore.WithSecondaryIndex(secondary)})
		obj, err := e.resolve(t, "Person", "x")
		require.NoError(t, err)
		x := obj.(*person)
		require.Len(t, x.Friends, 1)
		y := x.Friends[0]
		assert.Equal(t, "y", y.ID)
		// y keeps its own friends; the relation is not re-derived in reverse.
		require.Len(t, y.Friends, 2)
		assert.Same(t, x, y.Friends[0])
		assert.Equal(t, "z", y.Friends[1].ID)
		assert.Empty(t, y.Friends[1].Friends)
	}
}

type course struct {
	ID       string `db:"id"`
	Students []*student
}

type student struct {
	ID      string `db:"id"`
	Courses []*course
}

type club struct {
	ID      string `db:"id"`
	Members []*student
}

func TestInverseParentsFilteredByType(t *testing.T) {
	t.Parallel()

	c, err := metadata.New([]metadata.Schema{
		{Proto: &course{}, Name: "Course", Relations: []*relation.Builder{
			relation.To("Students", "Student").ManyToMany().Through("enrollments", "course_id", "student_id").Ref("Courses"),
		}},
		{Proto: &student{}, Name: "Student", Relations: []*relation.Builder{
			relation.To("Courses", "Course").ManyToMany().Through("enrollments", "student_id", "course_id").Ref("Students"),
		}},
		{Proto: &club{}, Name: "Club", Relations: []*relation.Builder{
			relation.To("Members", "Student").ManyToMany().Through("memberships", "club_id", "student_id"),
		}},
	})
	require.NoError(t, err)
	// Club k2 and Course k2 share an id; s1 belongs to the club only.
	seed := fixture.Seed{
		Rows: []fixture.Row{
			{Type: "Course", ID: "k1", Object: &course{ID: "k1"}},
			{Type: "Course", ID: "k2", Object: &course{ID: "k2"}},
			{Type: "Club", ID: "k2", Object: &club{ID: "k2"}},
			{Type: "Student", ID: "s1", Object: &student{ID: "s1"}},
		},
		Links: []fixture.Link{
			{Table: "enrollments", OwnColumn: "course_id", OtherColumn: "student_id", Own: "k1", Other: "s1"},
			{Table: "memberships", OwnColumn: "club_id", OtherColumn: "student_id", Own: "k2", Other: "s1"},
		},
	}

	for _, secondary := range []bool{true, false} {
		e := newEnv(t, c, seed, []memstore.Option{memstore.WithSecondaryIndex(secondary)})
		obj, err := e.resolve(t, "Course", "k1")
		require.NoError(t, err)
		k1 := obj.(*course)
		require.Len(t, k1.Students, 1)
		s1 := k1.Students[0]
		require.Len(t, s1.Courses, 1)
		assert.Same(t, k1, s1.Courses[0])
	}
}
