// Package board holds the 19x19 position owned by the GTP session: stone
// placement with captures, simple-ko and suicide legality, move history, and
// the ownership-map rendering used by final-score reporting.
package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIllegalMove = errors.New("board: illegal move")
	ErrNoHistory   = errors.New("board: no moves to undo")
)

// Board is the session's position. It is mutated only by the session loop;
// no locking happens here.
type Board struct {
	stones     [Size * Size]Color
	sideToMove Color
	history    []Vertex
	numPasses  [2]int // indexed by passIndex
	captures   [2]int
	ko         Vertex
}

func passIndex(c Color) int {
	if c == White {
		return 1
	}
	return 0
}

func New() *Board {
	b := &Board{}
	b.Init()
	return b
}

// Init resets to an empty position with black to move.
func (b *Board) Init() {
	b.stones = [Size * Size]Color{}
	b.sideToMove = Black
	b.history = b.history[:0]
	b.numPasses = [2]int{}
	b.captures = [2]int{}
	b.ko = None
}

func (b *Board) SideToMove() Color { return b.sideToMove }
func (b *Board) Stone(v Vertex) Color {
	if !v.OnBoard() {
		return Empty
	}
	return b.stones[v]
}

// MoveBefore reports the most recent move, or None on an empty history.
func (b *Board) MoveBefore() Vertex {
	if len(b.history) == 0 {
		return None
	}
	return b.history[len(b.history)-1]
}

// History returns a copy of the move sequence from the empty board.
func (b *Board) History() []Vertex {
	out := make([]Vertex, len(b.history))
	copy(out, b.history)
	return out
}

func (b *Board) GamePly() int { return len(b.history) }

func (b *Board) NumPasses(c Color) int       { return b.numPasses[passIndex(c)] }
func (b *Board) SetNumPasses(c Color, n int) { b.numPasses[passIndex(c)] = n }

// DecrementPasses backs out one recorded pass for c. Handicap placement
// interleaves bookkeeping passes to keep the turn order consistent and then
// cancels them here.
func (b *Board) DecrementPasses(c Color) {
	if b.numPasses[passIndex(c)] > 0 {
		b.numPasses[passIndex(c)]--
	}
}

// DoublePass reports whether the game ended with two consecutive passes.
func (b *Board) DoublePass() bool {
	n := len(b.history)
	return n >= 2 && b.history[n-1] == Pass && b.history[n-2] == Pass
}

func (b *Board) neighbors(v Vertex) []Vertex {
	out := make([]Vertex, 0, 4)
	x, y := v.X(), v.Y()
	if x > 0 {
		out = append(out, v-1)
	}
	if x < Size-1 {
		out = append(out, v+1)
	}
	if y > 0 {
		out = append(out, v-Size)
	}
	if y < Size-1 {
		out = append(out, v+Size)
	}
	return out
}

// group flood-fills the chain containing v and reports its stones and
// liberty count.
func (b *Board) group(v Vertex) (stones []Vertex, liberties int) {
	c := b.stones[v]
	seen := make(map[Vertex]bool)
	libs := make(map[Vertex]bool)
	stack := []Vertex{v}
	seen[v] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stones = append(stones, cur)
		for _, n := range b.neighbors(cur) {
			switch b.stones[n] {
			case Empty:
				libs[n] = true
			case c:
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return stones, len(libs)
}

// Legal reports whether v is a legal move for the side to move.
func (b *Board) Legal(v Vertex) bool {
	return b.check(v) == nil
}

func (b *Board) check(v Vertex) error {
	if v == Pass {
		return nil
	}
	if !v.OnBoard() {
		return fmt.Errorf("%w: %s off board", ErrIllegalMove, v)
	}
	if b.stones[v] != Empty {
		return fmt.Errorf("%w: %s occupied", ErrIllegalMove, v)
	}
	if v == b.ko {
		return fmt.Errorf("%w: %s retakes ko", ErrIllegalMove, v)
	}
	return nil
}

// Play makes a move for the side to move, removing captured chains. Occupied
// points, simple-ko retakes and suicide are rejected without mutating state.
func (b *Board) Play(v Vertex) error {
	if err := b.check(v); err != nil {
		return err
	}
	c := b.sideToMove
	if v == Pass {
		b.history = append(b.history, Pass)
		b.numPasses[passIndex(c)]++
		b.ko = None
		b.sideToMove = c.Opponent()
		return nil
	}

	b.stones[v] = c
	opp := c.Opponent()
	var captured []Vertex
	for _, n := range b.neighbors(v) {
		if b.stones[n] != opp {
			continue
		}
		stones, libs := b.group(n)
		if libs == 0 {
			captured = append(captured, stones...)
		}
	}
	for _, s := range captured {
		b.stones[s] = Empty
	}
	b.captures[passIndex(c)] += len(captured)

	own, libs := b.group(v)
	if libs == 0 {
		// Suicide: revert placement and captures (none happened if libs==0).
		b.stones[v] = Empty
		return fmt.Errorf("%w: %s is suicide", ErrIllegalMove, v)
	}

	b.ko = None
	if len(captured) == 1 && len(own) == 1 && libs == 1 {
		b.ko = captured[0]
	}

	b.history = append(b.history, v)
	b.sideToMove = opp
	return nil
}

// Clone returns an independent copy of the position. Background thinks run
// on a clone so a think that outlives its cancellation grace period never
// observes dispatch mutations.
func (b *Board) Clone() *Board {
	nb := *b
	nb.history = append([]Vertex(nil), b.history...)
	return &nb
}

// Replay rebuilds a position from a move sequence on an empty board.
// Used by undo, which replays everything but the final move.
func (b *Board) Replay(moves []Vertex) error {
	b.Init()
	for _, v := range moves {
		if err := b.Play(v); err != nil {
			return err
		}
	}
	return nil
}

// Render draws the position with an ownership overlay for the diagnostic
// channel: stones as X/O, empty points as x/o for the side owning them,
// '.' for neutral. owner may be nil to draw stones only.
func (b *Board) Render(owner []Color) string {
	var sb strings.Builder
	for y := Size - 1; y >= 0; y-- {
		fmt.Fprintf(&sb, "%2d ", y+1)
		for x := 0; x < Size; x++ {
			v := XY(x, y)
			ch := byte('.')
			switch b.stones[v] {
			case Black:
				ch = 'X'
			case White:
				ch = 'O'
			default:
				if owner != nil {
					switch owner[v] {
					case Black:
						ch = 'x'
					case White:
						ch = 'o'
					}
				}
			}
			sb.WriteByte(ch)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   ")
	for x := 0; x < Size; x++ {
		sb.WriteByte(columns[x])
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	return sb.String()
}
