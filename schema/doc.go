// Package schema defines the SousChef target content schema: the exact
// field set, JSON aliases, enumerations and nesting an accepted recipe
// document must carry. It is the single source of truth both the structural
// validator and the domain quality checker validate against.
package schema
