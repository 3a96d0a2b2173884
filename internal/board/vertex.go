package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Size is the only board dimension this build plays on.
const Size = 19

// Column letters per GTP: "I" is skipped.
const columns = "ABCDEFGHJKLMNOPQRST"

var ErrInvalidVertex = errors.New("board: invalid vertex")

// Vertex is a point on the board, or one of the sentinel moves.
type Vertex int

const (
	// None marks "no move yet" (empty history, cleared ko point).
	None Vertex = -2
	// Pass is the pass move.
	Pass Vertex = -1
)

func XY(x, y int) Vertex {
	return Vertex(y*Size + x)
}

func (v Vertex) X() int { return int(v) % Size }
func (v Vertex) Y() int { return int(v) / Size }

func (v Vertex) OnBoard() bool {
	return v >= 0 && int(v) < Size*Size
}

// String renders the GTP coordinate, e.g. XY(15, 15) -> "Q16".
func (v Vertex) String() string {
	switch v {
	case Pass:
		return "pass"
	case None:
		return "none"
	}
	if !v.OnBoard() {
		return fmt.Sprintf("vertex(%d)", int(v))
	}
	return fmt.Sprintf("%c%d", columns[v.X()], v.Y()+1)
}

// ParseVertex reads a GTP coordinate ("Q16", "d4", "pass"). "resign" is
// accepted and mapped to Pass, matching how the engine records a resignation.
func ParseVertex(s string) (Vertex, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return None, fmt.Errorf("%w: empty", ErrInvalidVertex)
	}
	switch strings.ToLower(t) {
	case "pass", "resign":
		return Pass, nil
	}
	col := strings.IndexByte(columns, byte(strings.ToUpper(t)[0]))
	if col < 0 {
		return None, fmt.Errorf("%w: %q", ErrInvalidVertex, s)
	}
	row, err := strconv.Atoi(t[1:])
	if err != nil || row < 1 || row > Size {
		return None, fmt.Errorf("%w: %q", ErrInvalidVertex, s)
	}
	return XY(col, row-1), nil
}

// Color of a point or player.
type Color int8

const (
	Empty Color = iota
	Black
	White
)

func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	}
	return Empty
}

func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	}
	return "empty"
}

// ParseColor reads a GTP color argument ("B", "black", "w", ...).
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "black":
		return Black, nil
	case "w", "white":
		return White, nil
	}
	return Empty, fmt.Errorf("%w: color %q", ErrInvalidVertex, s)
}
