// Package search provides the query builder and index contract used to look
// up relationship rows on backends without secondary indexes.
//
// Every relationship row is indexed as a Document with four fields:
// entityClass, entityId, parentClass and parentId. Queries are a fixed
// boolean AND of required field matches:
//
//	+parentClass:order AND +parentId:42 AND +entityClass:lineitem
//
// MemIndex is an in-memory implementation used by the key-value store and
// by tests.
package search
