package search

import (
	"math"

	"github.com/tengenbot/tengen/internal/board"
)

// Evaluator is the expensive-to-acquire scoring backend. Acquisition happens
// at most once per process; the tree holds the instance for its lifetime.
// The scoring itself is a static positional table plus local features, a
// stand-in that honors the same acquisition contract an accelerator-backed
// backend would.
type Evaluator struct {
	weights [board.Size * board.Size]float64
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{}
	for y := 0; y < board.Size; y++ {
		for x := 0; x < board.Size; x++ {
			e.weights[board.XY(x, y)] = pointWeight(x, y)
		}
	}
	return e
}

// pointWeight prefers the third and fourth lines and the star points,
// penalizing the first and second lines.
func pointWeight(x, y int) float64 {
	edge := math.Min(
		math.Min(float64(x), float64(board.Size-1-x)),
		math.Min(float64(y), float64(board.Size-1-y)),
	)
	w := 0.0
	switch edge {
	case 0:
		w = -2.0
	case 1:
		w = -1.0
	case 2:
		w = 1.0
	case 3:
		w = 1.2
	default:
		w = 0.5
	}
	for i := range starPoints {
		if starPoints[i][0] == x && starPoints[i][1] == y {
			w += 0.8
		}
	}
	return w
}

var starPoints = [9][2]int{
	{3, 3}, {9, 3}, {15, 3},
	{3, 9}, {9, 9}, {15, 9},
	{3, 15}, {9, 15}, {15, 15},
}

// Score rates playing v for the side to move on b. Larger is better.
func (e *Evaluator) Score(b *board.Board, v board.Vertex) float64 {
	if !v.OnBoard() {
		return 0
	}
	score := e.weights[v]

	// Stay close to the previous move when one exists.
	if last := b.MoveBefore(); last.OnBoard() {
		dx := float64(v.X() - last.X())
		dy := float64(v.Y() - last.Y())
		dist := math.Sqrt(dx*dx + dy*dy)
		score += math.Max(0, 3.0-dist/2.0)
	}

	// Contact with any stone beats playing in empty space mid-game.
	if b.GamePly() > 8 && hasNeighborStone(b, v) {
		score += 1.0
	}
	return score
}

func hasNeighborStone(b *board.Board, v board.Vertex) bool {
	x, y := v.X(), v.Y()
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || nx >= board.Size || ny < 0 || ny >= board.Size {
			continue
		}
		if b.Stone(board.XY(nx, ny)) != board.Empty {
			return true
		}
	}
	return false
}
