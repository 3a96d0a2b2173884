// Package gtp owns the protocol connector: the session's only interface to
// the outside world.
//
// Ownership boundary:
// - command intake (stdin reader, FIFO command queue)
// - command parsing and the closed command set
// - ponder-vs-dispatch coordination and cooperative cancellation
// - response framing on stdout
//
// Stdout carries protocol responses only. Everything operator-facing goes to
// the diagnostic logger.
package gtp
