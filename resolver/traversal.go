package resolver

import (
	"github.com/google/uuid"

	"github.com/syssam/polystore"
)

// Traversal is the state of one resolution call: the dedup cache, the
// current recursion depth and the identity map of entities already
// reached. It is owned by a single goroutine and discarded when the call
// returns.
type Traversal struct {
	// ID identifies the traversal in logs.
	ID string

	cache      *polystore.Cache
	depth      int
	maxDepth   int
	identities map[identity]*visit
}

type identity struct{ typ, id string }

type visit struct {
	obj       any
	resolving bool
}

// NewTraversal returns an empty traversal.
func NewTraversal() *Traversal {
	return &Traversal{
		ID:         uuid.NewString(),
		cache:      polystore.NewCache(),
		identities: make(map[identity]*visit),
	}
}

// Cache returns the traversal's dedup cache.
func (t *Traversal) Cache() *polystore.Cache { return t.cache }

// Depth returns the current recursion depth.
func (t *Traversal) Depth() int { return t.depth }

// MaxDepth returns the deepest recursion reached so far.
func (t *Traversal) MaxDepth() int { return t.maxDepth }

// Lookup returns the instance registered for (typ, id), whether or not
// its relationships are fully resolved yet.
func (t *Traversal) Lookup(typ, id string) (any, bool) {
	v, ok := t.identities[identity{typ, id}]
	if !ok {
		return nil, false
	}
	return v.obj, true
}

// Len returns the number of entities registered in the identity map.
func (t *Traversal) Len() int { return len(t.identities) }

// canonical returns the registered instance for (typ, id), or obj and
// false when none is registered. obj is not registered.
func (t *Traversal) canonical(typ, id string, obj any) (any, bool) {
	if v, ok := t.identities[identity{typ, id}]; ok {
		return v.obj, true
	}
	return obj, false
}

func (t *Traversal) visit(typ, id string) *visit {
	return t.identities[identity{typ, id}]
}

func (t *Traversal) enter(typ, id string, obj any) *visit {
	v := &visit{obj: obj, resolving: true}
	t.identities[identity{typ, id}] = v
	t.depth++
	if t.depth > t.maxDepth {
		t.maxDepth = t.depth
	}
	return v
}

func (t *Traversal) leave(v *visit) {
	v.resolving = false
	t.depth--
}
