// Package sgf records the game as an SGF document the session can persist
// after every board-mutating command.
package sgf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tengenbot/tengen/internal/board"
)

var ErrMalformed = errors.New("sgf: malformed record")

// sgfColumns includes "i": SGF point coordinates do not skip it.
const sgfColumns = "abcdefghijklmnopqrs"

// Recorder accumulates one game record. Not safe for concurrent use; the
// session loop is its only caller.
type Recorder struct {
	moves  []board.Vertex
	komi   float64
	gameID string
	date   time.Time
	black  string
	white  string
}

func NewRecorder() *Recorder {
	r := &Recorder{}
	r.Init()
	return r
}

// Init discards the current record and starts a fresh game.
func (r *Recorder) Init() {
	r.moves = r.moves[:0]
	r.gameID = uuid.NewString()
	r.date = time.Now()
}

func (r *Recorder) SetKomi(komi float64)           { r.komi = komi }
func (r *Recorder) SetPlayers(black, white string) { r.black, r.white = black, white }
func (r *Recorder) GameID() string                 { return r.gameID }
func (r *Recorder) GamePly() int                   { return len(r.moves) }

// Add appends one move. The first move is black; colors alternate from there,
// which matches how the session replays and records positions.
func (r *Recorder) Add(v board.Vertex) {
	r.moves = append(r.moves, v)
}

// Serialize renders the record as an SGF string.
func (r *Recorder) Serialize() string {
	var sb strings.Builder
	sb.WriteString("(;FF[4]GM[1]CA[UTF-8]")
	fmt.Fprintf(&sb, "SZ[%d]", board.Size)
	fmt.Fprintf(&sb, "KM[%.1f]", r.komi)
	fmt.Fprintf(&sb, "DT[%s]", r.date.Format("2006-01-02"))
	fmt.Fprintf(&sb, "GN[%s]", r.gameID)
	if r.black != "" {
		fmt.Fprintf(&sb, "PB[%s]", r.black)
	}
	if r.white != "" {
		fmt.Fprintf(&sb, "PW[%s]", r.white)
	}
	c := board.Black
	for _, v := range r.moves {
		tag := "B"
		if c == board.White {
			tag = "W"
		}
		fmt.Fprintf(&sb, ";%s[%s]", tag, pointCoord(v))
		c = c.Opponent()
	}
	sb.WriteString(")\n")
	return sb.String()
}

// Write saves the record to path, creating parent directories as needed.
func (r *Recorder) Write(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sgf: create record dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(r.Serialize()), 0o644); err != nil {
		return fmt.Errorf("sgf: write record: %w", err)
	}
	return nil
}

// pointCoord renders an SGF point; a pass is the empty point per FF[4].
func pointCoord(v board.Vertex) string {
	if v == board.Pass || !v.OnBoard() {
		return ""
	}
	// SGF rows count from the top.
	return string([]byte{sgfColumns[v.X()], sgfColumns[board.Size-1-v.Y()]})
}

// Game is a parsed record: the move sequence plus the komi when the record
// carries one. Only the properties the session needs to resume a game come
// back; everything else is skipped.
type Game struct {
	Komi    float64
	HasKomi bool
	Moves   []board.Vertex
}

// Load reads and parses the record at path.
func Load(path string) (Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Game{}, fmt.Errorf("sgf: read record: %w", err)
	}
	return Parse(string(data))
}

// Parse scans an SGF document for move nodes, komi and board size. Properties
// it does not recognize are ignored, so records written by other tools load
// as long as their move sequence alternates from black.
func Parse(text string) (Game, error) {
	var g Game
	i := 0
	for i < len(text) {
		if text[i] < 'A' || text[i] > 'Z' {
			i++
			continue
		}
		j := i
		for j < len(text) && text[j] >= 'A' && text[j] <= 'Z' {
			j++
		}
		ident := text[i:j]
		i = j
		if i >= len(text) || text[i] != '[' {
			continue
		}
		end := strings.IndexByte(text[i:], ']')
		if end < 0 {
			return Game{}, fmt.Errorf("%w: unterminated %s property", ErrMalformed, ident)
		}
		value := text[i+1 : i+end]
		i += end + 1

		switch ident {
		case "SZ":
			if value != strconv.Itoa(board.Size) {
				return Game{}, fmt.Errorf("%w: board size %q", ErrMalformed, value)
			}
		case "KM":
			komi, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Game{}, fmt.Errorf("%w: komi %q", ErrMalformed, value)
			}
			g.Komi = komi
			g.HasKomi = true
		case "B", "W":
			v, err := parsePoint(value)
			if err != nil {
				return Game{}, err
			}
			g.Moves = append(g.Moves, v)
		}
	}
	return g, nil
}

func parsePoint(value string) (board.Vertex, error) {
	if value == "" {
		return board.Pass, nil
	}
	if len(value) != 2 {
		return board.None, fmt.Errorf("%w: point %q", ErrMalformed, value)
	}
	x := strings.IndexByte(sgfColumns, value[0])
	row := strings.IndexByte(sgfColumns, value[1])
	if x < 0 || row < 0 {
		return board.None, fmt.Errorf("%w: point %q", ErrMalformed, value)
	}
	return board.XY(x, board.Size-1-row), nil
}
