package gtp

import (
	"context"
	"io"
	"time"

	"github.com/tengenbot/tengen/internal/board"
)

// ThinkOptions carries one think request to the search collaborator.
type ThinkOptions struct {
	// Budget bounds the think wall-clock time.
	Budget time.Duration
	// Ponder marks background thinking: the result move is advisory and the
	// session discards it.
	Ponder bool
	// AnalysisInterval enables periodic partial-result emission when > 0.
	AnalysisInterval time.Duration
	// AnalysisOut receives the partial-result lines. It is the protocol
	// stream; the engine writes nothing else to it.
	AnalysisOut io.Writer
}

// Result is the outcome of one think.
type Result struct {
	Move    board.Vertex
	WinRate float64
	Visits  int
}

// Engine is the search/decision collaborator contract. The session treats it
// as an opaque service: it owns its evaluator resource, its internal
// concurrency and the clock bookkeeping for the game.
type Engine interface {
	// Think searches b for the side to move. It honors ctx cancellation
	// cooperatively: it returns soon after ctx is done, but the session only
	// waits a bounded grace period for it.
	Think(ctx context.Context, b *board.Board, opts ThinkOptions) (Result, error)
	// Cancel asks the current think, if any, to stop. Best-effort and
	// asynchronous.
	Cancel()

	HasEvaluator() bool
	AcquireEvaluator() error

	// FinalScore returns the score margin (positive favors black, komi
	// already applied) and the per-point ownership map.
	FinalScore(b *board.Board) (float64, []board.Color)

	SetKomi(komi float64)
	Komi() float64
	SetMainTime(seconds float64)
	MainTime() float64
	SetByoyomi(seconds float64)
	Byoyomi() float64
	SetLeftTime(seconds float64)
	LeftTime() float64

	// SetLogWriter associates the per-game log file; nil detaches it.
	SetLogWriter(w io.Writer)
}
