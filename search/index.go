package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Index executes boolean field-match queries against an inverted index.
type Index interface {
	// Search returns matched document key -> entity id.
	Search(ctx context.Context, query string) (map[string]string, error)
	// FetchRelation returns matched document key -> parent id.
	FetchRelation(ctx context.Context, query string) (map[string]string, error)
}

// Document is one indexed relationship row: an entity and the parent it
// belongs to.
type Document struct {
	EntityClass string
	EntityID    string
	ParentClass string
	ParentID    string
}

// NewDocument returns a document with normalized type names.
func NewDocument(entityType, entityID, parentType, parentID string) Document {
	return Document{
		EntityClass: TypeName(entityType),
		EntityID:    entityID,
		ParentClass: TypeName(parentType),
		ParentID:    parentID,
	}
}

// Key returns the document key.
func (d Document) Key() string {
	return d.EntityClass + "/" + d.EntityID + "@" + d.ParentClass + "/" + d.ParentID
}

func (d Document) value(field string) (string, bool) {
	switch field {
	case EntityClassField:
		return d.EntityClass, true
	case EntityIDField:
		return d.EntityID, true
	case ParentClassField:
		return d.ParentClass, true
	case ParentIDField:
		return d.ParentID, true
	}
	return "", false
}

// MemIndex is an in-memory Index. It is safe for concurrent use.
type MemIndex struct {
	mu       sync.RWMutex
	docs     map[string]Document
	postings map[string]map[string]struct{} // field:value -> doc keys
	queries  atomic.Int64
}

// NewMemIndex returns an empty index.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		docs:     make(map[string]Document),
		postings: make(map[string]map[string]struct{}),
	}
}

// Add indexes docs, replacing documents with the same key.
func (ix *MemIndex) Add(_ context.Context, docs ...Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, d := range docs {
		key := d.Key()
		if _, ok := ix.docs[key]; ok {
			ix.remove(key)
		}
		ix.docs[key] = d
		for _, f := range []string{EntityClassField, EntityIDField, ParentClassField, ParentIDField} {
			v, _ := d.value(f)
			term := f + ":" + v
			if ix.postings[term] == nil {
				ix.postings[term] = make(map[string]struct{})
			}
			ix.postings[term][key] = struct{}{}
		}
	}
	return nil
}

// Remove deletes the document with the given key.
func (ix *MemIndex) Remove(_ context.Context, key string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.remove(key)
	return nil
}

func (ix *MemIndex) remove(key string) {
	d, ok := ix.docs[key]
	if !ok {
		return
	}
	delete(ix.docs, key)
	for _, f := range []string{EntityClassField, EntityIDField, ParentClassField, ParentIDField} {
		v, _ := d.value(f)
		term := f + ":" + v
		delete(ix.postings[term], key)
		if len(ix.postings[term]) == 0 {
			delete(ix.postings, term)
		}
	}
}

// Len returns the number of indexed documents.
func (ix *MemIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Queries returns the number of queries executed so far.
func (ix *MemIndex) Queries() int64 { return ix.queries.Load() }

// Search implements Index.
func (ix *MemIndex) Search(_ context.Context, query string) (map[string]string, error) {
	return ix.match(query, func(d Document) string { return d.EntityID })
}

// FetchRelation implements Index.
func (ix *MemIndex) FetchRelation(_ context.Context, query string) (map[string]string, error) {
	return ix.match(query, func(d Document) string { return d.ParentID })
}

func (ix *MemIndex) match(query string, project func(Document) string) (map[string]string, error) {
	ix.queries.Add(1)
	clauses, err := Parse(query)
	if err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var hits map[string]struct{}
	for _, c := range clauses {
		if _, ok := (Document{}).value(c.Field); !ok {
			return nil, fmt.Errorf("search: unknown field %q", c.Field)
		}
		posting := ix.postings[c.Field+":"+c.Value]
		if hits == nil {
			hits = make(map[string]struct{}, len(posting))
			for k := range posting {
				hits[k] = struct{}{}
			}
			continue
		}
		for k := range hits {
			if _, ok := posting[k]; !ok {
				delete(hits, k)
			}
		}
	}
	out := make(map[string]string, len(hits))
	for k := range hits {
		out[k] = project(ix.docs[k])
	}
	return out, nil
}

var _ Index = (*MemIndex)(nil)
