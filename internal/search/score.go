package search

import "github.com/tengenbot/tengen/internal/board"

// FinalScore area-scores the position: stones count for their color, empty
// regions count for the color that exclusively borders them, komi comes off
// black's total. The ownership map backs the diagnostic board printout.
func (t *Tree) FinalScore(b *board.Board) (float64, []board.Color) {
	const n = board.Size * board.Size
	owner := make([]board.Color, n)
	seen := make([]bool, n)

	for i := 0; i < n; i++ {
		v := board.Vertex(i)
		if c := b.Stone(v); c != board.Empty {
			owner[i] = c
			continue
		}
		if seen[i] {
			continue
		}

		// Flood-fill the empty region and note which colors border it.
		region := []board.Vertex{v}
		seen[i] = true
		touchesBlack, touchesWhite := false, false
		for stack := []board.Vertex{v}; len(stack) > 0; {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range neighborsOf(cur) {
				switch b.Stone(nb) {
				case board.Black:
					touchesBlack = true
				case board.White:
					touchesWhite = true
				default:
					if !seen[nb] {
						seen[nb] = true
						region = append(region, nb)
						stack = append(stack, nb)
					}
				}
			}
		}

		regionOwner := board.Empty
		if touchesBlack && !touchesWhite {
			regionOwner = board.Black
		} else if touchesWhite && !touchesBlack {
			regionOwner = board.White
		}
		for _, rv := range region {
			owner[rv] = regionOwner
		}
	}

	var black, white int
	for _, c := range owner {
		switch c {
		case board.Black:
			black++
		case board.White:
			white++
		}
	}
	t.mu.Lock()
	komi := t.komi
	t.mu.Unlock()
	return float64(black) - float64(white) - komi, owner
}

func neighborsOf(v board.Vertex) []board.Vertex {
	out := make([]board.Vertex, 0, 4)
	x, y := v.X(), v.Y()
	if x > 0 {
		out = append(out, v-1)
	}
	if x < board.Size-1 {
		out = append(out, v+1)
	}
	if y > 0 {
		out = append(out, v-board.Size)
	}
	if y < board.Size-1 {
		out = append(out, v+board.Size)
	}
	return out
}
