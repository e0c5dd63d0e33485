// Package shelf implements the book operations on six-slot shelf blocks.
//
// Every operation returns a future. Region loads run on the worker pool,
// block reads and writes run on the mutation loop, and the push event goes
// out once the slot state has converged. Item writes go through the host's
// privileged replace-item command so clients always render the new book.
package shelf
