package gtp

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tengenbot/tengen/internal/board"
	"github.com/tengenbot/tengen/internal/logging"
	"github.com/tengenbot/tengen/internal/testutil/testlog"
)

// fakeEngine is a scriptable search collaborator.
type fakeEngine struct {
	mu        sync.Mutex
	evaluator bool
	acquires  int
	cancels   int
	thinks    []ThinkOptions
	result    Result
	margin    float64
	owner     []board.Color

	komi     float64
	mainTime float64
	byoyomi  float64
	leftTime float64

	blockPonder bool
	ponderEnded bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		result: Result{Move: board.XY(15, 15), WinRate: 0.55, Visits: 100},
	}
}

func (f *fakeEngine) Think(ctx context.Context, b *board.Board, opts ThinkOptions) (Result, error) {
	f.mu.Lock()
	f.thinks = append(f.thinks, opts)
	block := f.blockPonder && opts.Ponder
	res := f.result
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		f.mu.Lock()
		f.ponderEnded = true
		f.mu.Unlock()
	}
	return res, nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeEngine) HasEvaluator() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.evaluator
}

func (f *fakeEngine) AcquireEvaluator() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluator = true
	f.acquires++
	return nil
}

func (f *fakeEngine) FinalScore(b *board.Board) (float64, []board.Color) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.margin, f.owner
}

func (f *fakeEngine) SetKomi(k float64)        { f.mu.Lock(); f.komi = k; f.mu.Unlock() }
func (f *fakeEngine) Komi() float64            { f.mu.Lock(); defer f.mu.Unlock(); return f.komi }
func (f *fakeEngine) SetMainTime(s float64)    { f.mu.Lock(); f.mainTime = s; f.mu.Unlock() }
func (f *fakeEngine) MainTime() float64        { f.mu.Lock(); defer f.mu.Unlock(); return f.mainTime }
func (f *fakeEngine) SetByoyomi(s float64)     { f.mu.Lock(); f.byoyomi = s; f.mu.Unlock() }
func (f *fakeEngine) Byoyomi() float64         { f.mu.Lock(); defer f.mu.Unlock(); return f.byoyomi }
func (f *fakeEngine) SetLeftTime(s float64)    { f.mu.Lock(); f.leftTime = s; f.mu.Unlock() }
func (f *fakeEngine) LeftTime() float64        { f.mu.Lock(); defer f.mu.Unlock(); return f.leftTime }
func (f *fakeEngine) SetLogWriter(w io.Writer) {}

func (f *fakeEngine) thinkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.thinks)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WorkingDir = t.TempDir()
	cfg.CancelGrace = 50 * time.Millisecond
	cfg.AcquireDelay = 0
	return cfg
}

func newTestSession(t *testing.T, cfg Config, engine Engine, input string) (*Session, *bytes.Buffer) {
	t.Helper()
	testlog.Start(t)
	var out bytes.Buffer
	s, err := NewSession(cfg, engine, strings.NewReader(input), &out, logging.Logger())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s, &out
}

func TestRunTerminatesOnlyOnQuit(t *testing.T) {
	engine := newFakeEngine()
	s, out := newTestSession(t, testConfig(t), engine, "name\n\n   \nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	want := "= tengen\n\n= \n\n"
	if got != want {
		t.Fatalf("output %q want %q", got, want)
	}
}

func TestRunUnknownCommandContinues(t *testing.T) {
	engine := newFakeEngine()
	s, out := newTestSession(t, testConfig(t), engine, "frobnicate\nprotocol_version\nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	want := "? unknown command.\n\n= 2\n\n= \n\n"
	if got != want {
		t.Fatalf("output %q want %q", got, want)
	}
}

func TestRunEchoesRequestID(t *testing.T) {
	engine := newFakeEngine()
	s, out := newTestSession(t, testConfig(t), engine, "=7 name\n=8 bogus\nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "=7 tengen\n\n") {
		t.Fatalf("missing id echo: %q", got)
	}
	if !strings.Contains(got, "?8 unknown command.\n\n") {
		t.Fatalf("missing failure id echo: %q", got)
	}
}

func TestStreamingTerminatedByNextCommand(t *testing.T) {
	engine := newFakeEngine()
	cfg := testConfig(t)
	cfg.Lizzie = true
	s, out := newTestSession(t, cfg, engine, "lz-analyze 10\nname\nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	// lz-analyze responds without a blank-line terminator; the next command
	// first closes the stream with exactly one blank line.
	want := "= \n" + "\n" + "= tengen\n\n" + "= \n\n"
	if got != want {
		t.Fatalf("output %q want %q", got, want)
	}
}

func TestPonderCancelledBeforeNextDispatch(t *testing.T) {
	engine := newFakeEngine()
	engine.blockPonder = true
	engine.byoyomi = 30 // satisfies the ponder clock gate

	cfg := testConfig(t)
	s, out := newTestSession(t, cfg, engine, "genmove b\nname\nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	var ponders int
	for _, opts := range engine.thinks {
		if opts.Ponder {
			ponders++
		}
	}
	if ponders == 0 {
		t.Fatalf("expected a background ponder after genmove, thinks=%+v", engine.thinks)
	}
	if !engine.ponderEnded {
		t.Fatalf("ponder think must observe cancellation before dispatch continues")
	}
	if !strings.Contains(out.String(), "= Q16\n\n") {
		t.Fatalf("missing genmove response: %q", out.String())
	}
}

func TestPonderSkippedWithoutClock(t *testing.T) {
	engine := newFakeEngine() // leftTime 0, byoyomi 0
	s, _ := newTestSession(t, testConfig(t), engine, "genmove b\nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	for _, opts := range engine.thinks {
		if opts.Ponder {
			t.Fatalf("unexpected ponder with exhausted clock")
		}
	}
}

func TestEvaluatorDeferredUntilFirstNeed(t *testing.T) {
	engine := newFakeEngine()
	s, _ := newTestSession(t, testConfig(t), engine, "name\nquit\n")
	if engine.acquires != 0 {
		t.Fatalf("evaluator acquired during handshake")
	}
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if engine.acquires != 0 {
		t.Fatalf("evaluator acquired without need")
	}
}

func TestEvaluatorEagerWithAllocateOnStart(t *testing.T) {
	engine := newFakeEngine()
	cfg := testConfig(t)
	cfg.AllocateOnStart = true
	_, _ = newTestSession(t, cfg, engine, "quit\n")
	if engine.acquires != 1 {
		t.Fatalf("expected eager acquisition, acquires=%d", engine.acquires)
	}
}

func TestEvaluatorAcquiredAtMostOnce(t *testing.T) {
	engine := newFakeEngine()
	s, _ := newTestSession(t, testConfig(t), engine, "genmove b\nplay w D4\ngenmove b\nquit\n")
	if err := s.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if engine.acquires != 1 {
		t.Fatalf("acquires=%d", engine.acquires)
	}
}

func TestSendListEmitsCommandSetAtStart(t *testing.T) {
	engine := newFakeEngine()
	cfg := testConfig(t)
	cfg.SendList = true
	_, out := newTestSession(t, cfg, engine, "quit\n")
	if !strings.HasPrefix(out.String(), "= protocol_version\n") {
		t.Fatalf("missing startup command list: %q", out.String())
	}
}
