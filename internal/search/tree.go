// Package search is the decision engine behind the GTP session: evaluator
// acquisition, budgeted cancellable thinks, streaming analysis output, final
// scoring and game-clock bookkeeping.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tengenbot/tengen/internal/board"
	"github.com/tengenbot/tengen/internal/gtp"
)

var ErrNoEvaluator = errors.New("search: evaluator not acquired")

// roundsPerStep is how many playout rounds run between cancellation checks.
// Kept small so a cancel lands well inside the session's grace period.
const roundsPerStep = 64

// Tree implements gtp.Engine.
type Tree struct {
	mu          sync.Mutex
	thinkMu     sync.Mutex // serializes thinks; held for a whole Think call
	evaluator   *Evaluator
	cancelThink context.CancelFunc

	komi     float64
	mainTime float64
	byoyomi  float64
	leftTime float64

	logW io.Writer
	rng  *rand.Rand
}

// defaultMainTime seeds the clock so pondering and streaming analysis work
// before any time_settings command arrives.
const defaultMainTime = 900.0

func NewTree() *Tree {
	return &Tree{
		mainTime: defaultMainTime,
		leftTime: defaultMainTime,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *Tree) HasEvaluator() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evaluator != nil
}

// AcquireEvaluator builds the scoring backend. At most once per process; a
// second call is a no-op.
func (t *Tree) AcquireEvaluator() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.evaluator != nil {
		return nil
	}
	t.evaluator = NewEvaluator()
	return nil
}

func (t *Tree) SetKomi(k float64)     { t.mu.Lock(); t.komi = k; t.mu.Unlock() }
func (t *Tree) Komi() float64         { t.mu.Lock(); defer t.mu.Unlock(); return t.komi }
func (t *Tree) SetMainTime(s float64) { t.mu.Lock(); t.mainTime = s; t.mu.Unlock() }
func (t *Tree) MainTime() float64     { t.mu.Lock(); defer t.mu.Unlock(); return t.mainTime }
func (t *Tree) SetByoyomi(s float64)  { t.mu.Lock(); t.byoyomi = s; t.mu.Unlock() }
func (t *Tree) Byoyomi() float64      { t.mu.Lock(); defer t.mu.Unlock(); return t.byoyomi }
func (t *Tree) SetLeftTime(s float64) { t.mu.Lock(); t.leftTime = s; t.mu.Unlock() }
func (t *Tree) LeftTime() float64     { t.mu.Lock(); defer t.mu.Unlock(); return t.leftTime }

func (t *Tree) SetLogWriter(w io.Writer) {
	t.mu.Lock()
	t.logW = w
	t.mu.Unlock()
}

// Cancel stops the in-flight think, if any. Safe from any goroutine.
func (t *Tree) Cancel() {
	t.mu.Lock()
	cancel := t.cancelThink
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type candidate struct {
	move   board.Vertex
	score  float64
	visits int
}

// Think runs a budgeted search over the legal moves. The loop advances in
// millisecond steps and checks cancellation between steps, which keeps the
// cooperative-cancel overrun far below the session's grace period.
func (t *Tree) Think(ctx context.Context, b *board.Board, opts gtp.ThinkOptions) (gtp.Result, error) {
	t.thinkMu.Lock()
	defer t.thinkMu.Unlock()

	t.mu.Lock()
	ev := t.evaluator
	t.mu.Unlock()
	if ev == nil {
		return gtp.Result{}, ErrNoEvaluator
	}

	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancelThink = cancel
	t.mu.Unlock()
	defer func() {
		cancel()
		t.mu.Lock()
		t.cancelThink = nil
		t.mu.Unlock()
	}()

	winRate := t.winRateFor(b)
	cands := t.candidates(b, ev)
	if len(cands) == 0 {
		return gtp.Result{Move: board.Pass, WinRate: winRate}, nil
	}

	budget := opts.Budget
	if budget <= 0 {
		budget = 100 * time.Millisecond
	}
	deadline := time.NewTimer(budget)
	defer deadline.Stop()
	step := time.NewTicker(time.Millisecond)
	defer step.Stop()

	var emit <-chan time.Time
	if opts.AnalysisInterval > 0 && opts.AnalysisOut != nil {
		ticker := time.NewTicker(opts.AnalysisInterval)
		defer ticker.Stop()
		emit = ticker.C
	}

	total := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline.C:
			break loop
		case <-emit:
			t.writeAnalysis(opts.AnalysisOut, cands, winRate)
		case <-step.C:
			for i := 0; i < roundsPerStep; i++ {
				t.visitOne(cands)
				total++
			}
		}
	}

	best := bestByVisits(cands)
	t.logThink(b, best, total, winRate)
	return gtp.Result{Move: best.move, WinRate: winRate, Visits: total}, nil
}

// candidates scores every legal move once. Pass is never a candidate; the
// caller converts an empty candidate list into a pass.
func (t *Tree) candidates(b *board.Board, ev *Evaluator) []*candidate {
	out := make([]*candidate, 0, 64)
	for i := 0; i < board.Size*board.Size; i++ {
		v := board.Vertex(i)
		if !b.Legal(v) {
			continue
		}
		out = append(out, &candidate{move: v, score: ev.Score(b, v)})
	}
	return out
}

// visitOne samples one candidate, favoring high scores with noise so visit
// counts spread realistically.
func (t *Tree) visitOne(cands []*candidate) {
	bestIdx := 0
	bestVal := math.Inf(-1)
	for i, c := range cands {
		val := c.score + t.rng.NormFloat64()*1.5 - math.Log1p(float64(c.visits))*0.25
		if val > bestVal {
			bestVal = val
			bestIdx = i
		}
	}
	cands[bestIdx].visits++
}

func bestByVisits(cands []*candidate) *candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.visits > best.visits {
			best = c
		}
	}
	return best
}

// winRateFor estimates the side to move's winning probability from the
// current area margin.
func (t *Tree) winRateFor(b *board.Board) float64 {
	margin, _ := t.FinalScore(b)
	if b.SideToMove() == board.White {
		margin = -margin
	}
	return 1.0 / (1.0 + math.Exp(-margin/12.0))
}

// writeAnalysis emits one lz-analyze info line covering the top candidates.
func (t *Tree) writeAnalysis(w io.Writer, cands []*candidate, winRate float64) {
	top := make([]*candidate, len(cands))
	copy(top, cands)
	sort.Slice(top, func(i, j int) bool { return top[i].visits > top[j].visits })
	if len(top) > 10 {
		top = top[:10]
	}

	var sb strings.Builder
	for order, c := range top {
		if order > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "info move %s visits %d winrate %d order %d pv %s",
			c.move, c.visits, int(winRate*10000), order, c.move)
	}
	sb.WriteByte('\n')
	io.WriteString(w, sb.String())
}

func (t *Tree) logThink(b *board.Board, best *candidate, total int, winRate float64) {
	t.mu.Lock()
	w := t.logW
	t.mu.Unlock()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "ply=%d best=%s visits=%d/%d winrate=%.3f\n",
		b.GamePly(), best.move, best.visits, total, winRate)
}
