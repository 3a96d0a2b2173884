package search

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tengenbot/tengen/internal/board"
	"github.com/tengenbot/tengen/internal/gtp"
	"github.com/tengenbot/tengen/internal/testutil/testlog"
)

func TestThinkRequiresEvaluator(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	_, err := tr.Think(context.Background(), board.New(), gtp.ThinkOptions{Budget: 10 * time.Millisecond})
	if !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestAcquireEvaluatorIdempotent(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	if tr.HasEvaluator() {
		t.Fatalf("fresh tree must not hold an evaluator")
	}
	if err := tr.AcquireEvaluator(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := tr.AcquireEvaluator(); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if !tr.HasEvaluator() {
		t.Fatalf("expected evaluator after acquire")
	}
}

func TestThinkReturnsLegalMoveWithinBudget(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	if err := tr.AcquireEvaluator(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	b := board.New()
	start := time.Now()
	res, err := tr.Think(context.Background(), b, gtp.ThinkOptions{Budget: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("think: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("think overran budget: %v", elapsed)
	}
	if !b.Legal(res.Move) {
		t.Fatalf("illegal move %s", res.Move)
	}
	if res.Visits == 0 {
		t.Fatalf("expected visits")
	}
	if res.WinRate <= 0 || res.WinRate >= 1 {
		t.Fatalf("winrate out of range: %v", res.WinRate)
	}
}

func TestThinkStopsPromptlyOnCancel(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	if err := tr.AcquireEvaluator(); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	done := make(chan struct{})
	start := time.Now()
	go func() {
		defer close(done)
		_, err := tr.Think(context.Background(), board.New(), gtp.ThinkOptions{Budget: time.Hour})
		if err != nil {
			t.Errorf("think: %v", err)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	tr.Cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("think ignored cancel")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancel took too long: %v", elapsed)
	}
}

func TestThinkEmitsAnalysisLines(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	if err := tr.AcquireEvaluator(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	var buf bytes.Buffer
	_, err := tr.Think(context.Background(), board.New(), gtp.ThinkOptions{
		Budget:           80 * time.Millisecond,
		AnalysisInterval: 10 * time.Millisecond,
		AnalysisOut:      &buf,
	})
	if err != nil {
		t.Fatalf("think: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "info move ") {
		t.Fatalf("expected analysis output, got %q", out)
	}
	if !strings.Contains(out, "visits ") || !strings.Contains(out, "pv ") {
		t.Fatalf("analysis line missing fields: %q", out)
	}
}

func TestFinalScoreEmptyBoardIsKomi(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	tr.SetKomi(7.5)
	margin, owner := tr.FinalScore(board.New())
	if margin != -7.5 {
		t.Fatalf("empty board margin: %v", margin)
	}
	for i, c := range owner {
		if c != board.Empty {
			t.Fatalf("empty board owner at %d: %v", i, c)
		}
	}
}

func TestFinalScoreCountsTerritory(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	b := board.New()
	// One lone black stone: black owns the whole board.
	if err := b.Play(board.XY(9, 9)); err != nil {
		t.Fatalf("play: %v", err)
	}
	margin, owner := tr.FinalScore(b)
	if margin != float64(board.Size*board.Size) {
		t.Fatalf("expected whole-board margin, got %v", margin)
	}
	if owner[board.XY(0, 0)] != board.Black {
		t.Fatalf("corner not black-owned")
	}
}

func TestClockAccessors(t *testing.T) {
	testlog.Start(t)
	tr := NewTree()
	tr.SetMainTime(600)
	tr.SetLeftTime(480)
	tr.SetByoyomi(30)
	if tr.MainTime() != 600 || tr.LeftTime() != 480 || tr.Byoyomi() != 30 {
		t.Fatalf("clock accessors: %v %v %v", tr.MainTime(), tr.LeftTime(), tr.Byoyomi())
	}
}
