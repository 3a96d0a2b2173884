package gtp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tengenbot/tengen/internal/testutil/testlog"
)

func TestPonderCoordinatorStopBeforeDispatch(t *testing.T) {
	testlog.Start(t)
	p := newPonderCoordinator(50 * time.Millisecond)
	var ended atomic.Bool
	p.Start(func(ctx context.Context) {
		<-ctx.Done()
		ended.Store(true)
	})
	if !p.Active() {
		t.Fatalf("expected pondering state")
	}

	p.StopAndWait()
	if p.Active() {
		t.Fatalf("expected idle state")
	}
	if !ended.Load() {
		t.Fatalf("think must have observed cancellation before dispatch")
	}
}

func TestPonderCoordinatorGraceIsBounded(t *testing.T) {
	testlog.Start(t)
	p := newPonderCoordinator(20 * time.Millisecond)
	release := make(chan struct{})
	p.Start(func(ctx context.Context) {
		// Ignores cancellation: the coordinator may only wait the grace
		// period, not forever.
		<-release
	})

	start := time.Now()
	p.StopAndWait()
	elapsed := time.Since(start)
	if elapsed > 500*time.Millisecond {
		t.Fatalf("grace wait unbounded: %v", elapsed)
	}
	if p.Active() {
		t.Fatalf("expected idle state after grace expiry")
	}
	close(release)
}

func TestPonderCoordinatorFinishedThinkStopsCleanly(t *testing.T) {
	testlog.Start(t)
	p := newPonderCoordinator(20 * time.Millisecond)
	done := make(chan struct{})
	p.Start(func(ctx context.Context) { close(done) })
	<-done
	time.Sleep(5 * time.Millisecond)
	p.StopAndWait()
	if p.Active() {
		t.Fatalf("expected idle state")
	}
}

func TestPonderCoordinatorStartWhileActiveIsNoop(t *testing.T) {
	testlog.Start(t)
	p := newPonderCoordinator(20 * time.Millisecond)
	var starts atomic.Int32
	think := func(ctx context.Context) {
		starts.Add(1)
		<-ctx.Done()
	}
	p.Start(think)
	p.Start(think)
	p.StopAndWait()
	if got := starts.Load(); got != 1 {
		t.Fatalf("think started %d times", got)
	}
}
