// Package task provides the futures and executors every container operation
// is composed from.
//
// Live container state may only be touched from the Loop, a single mutation
// goroutine. Region loads, owner file I/O and event fan-out run on the Pool.
// Stages hand off to each other through Future continuations; nothing blocks
// one context waiting on another.
package task
