package board

import "fmt"

// Star-point coordinates (1-based), in the order fixed_handicap fills them.
var (
	starX = [9]int{4, 16, 4, 16, 4, 16, 10, 10, 10}
	starY = [9]int{4, 16, 16, 4, 10, 10, 4, 16, 10}

	handicapStones = [8][]int{
		{0, 1},
		{0, 1, 2},
		{0, 1, 2, 3},
		{0, 1, 2, 3, 8},
		{0, 1, 2, 3, 4, 5},
		{0, 1, 2, 3, 4, 5, 8},
		{0, 1, 2, 3, 4, 5, 6, 7},
		{0, 1, 2, 3, 4, 5, 6, 7, 8},
	}
)

// HandicapVertices returns the fixed handicap placement for n stones (2..9).
func HandicapVertices(n int) ([]Vertex, error) {
	if n < 2 || n > 9 {
		return nil, fmt.Errorf("%w: %d handicap stones", ErrIllegalMove, n)
	}
	out := make([]Vertex, 0, n)
	for _, idx := range handicapStones[n-2] {
		out = append(out, XY(starX[idx]-1, starY[idx]-1))
	}
	return out, nil
}
