// Package store defines the contract between the graph resolver and the
// physical store clients.
//
// A Client serves one or more entity types. Backends differ in what they
// can answer natively: clients implementing IndexCapable advertise native
// secondary-index lookups (FindByRelation); the others rely on the search
// index returned by Index.
//
// Reads return Entity values, a tagged union of raw domain objects and
// wrapped rows that carry inline foreign-key values.
package store
