package search

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Index field names. Every indexed relationship row carries these fields.
const (
	EntityClassField = "entityClass"
	EntityIDField    = "entityId"
	ParentClassField = "parentClass"
	ParentIDField    = "parentId"
)

var lower = cases.Lower(language.Und)

// TypeName returns the form under which an entity type name is indexed.
func TypeName(name string) string {
	return lower.String(name)
}

// BuildQuery returns the boolean-AND query understood by the index:
//
//	+<parentTypeField>:<parentTypeValue> AND +<idField>:<idValue>[ AND +entityClass:<entityType>]
//
// The entity type clause is appended only when entityType is not empty.
func BuildQuery(parentTypeField, parentTypeValue, idField, idValue, entityType string) string {
	var sb strings.Builder
	sb.WriteString("+")
	sb.WriteString(parentTypeField)
	sb.WriteString(":")
	sb.WriteString(parentTypeValue)
	sb.WriteString(" AND ")
	sb.WriteString("+")
	sb.WriteString(idField)
	sb.WriteString(":")
	sb.WriteString(idValue)
	if entityType != "" {
		sb.WriteString(" AND ")
		sb.WriteString("+")
		sb.WriteString(EntityClassField)
		sb.WriteString(":")
		sb.WriteString(entityType)
	}
	return sb.String()
}

// Clause is one field match of a parsed query.
type Clause struct {
	Field string
	Value string
}

// Parse splits a query built by BuildQuery back into its clauses.
func Parse(query string) ([]Clause, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: empty query")
	}
	parts := strings.Split(query, " AND ")
	clauses := make([]Clause, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimPrefix(strings.TrimSpace(p), "+")
		name, value, ok := strings.Cut(p, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("search: malformed clause %q", p)
		}
		clauses = append(clauses, Clause{Field: name, Value: value})
	}
	return clauses, nil
}
