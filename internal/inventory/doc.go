// Package inventory implements the book operations on owner containers.
//
// Each call resolves the owner and picks a backend. A connected owner is
// mutated live on the mutation loop and gets a push event; a disconnected
// owner has its data file rewritten on a worker and nobody is told until
// the owner reconnects.
package inventory
