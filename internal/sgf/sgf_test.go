package sgf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tengenbot/tengen/internal/board"
)

func TestSerializeHeader(t *testing.T) {
	r := NewRecorder()
	r.SetKomi(7.5)
	r.SetPlayers("tengen", "opponent")

	out := r.Serialize()
	assert.True(t, strings.HasPrefix(out, "(;FF[4]GM[1]"), out)
	assert.Contains(t, out, "SZ[19]")
	assert.Contains(t, out, "KM[7.5]")
	assert.Contains(t, out, "PB[tengen]")
	assert.Contains(t, out, "PW[opponent]")
	assert.Contains(t, out, "GN["+r.GameID()+"]")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), ")"))
}

func TestSerializeMoves(t *testing.T) {
	r := NewRecorder()
	q16, err := board.ParseVertex("Q16")
	require.NoError(t, err)
	d4, err := board.ParseVertex("D4")
	require.NoError(t, err)
	r.Add(q16)
	r.Add(d4)
	r.Add(board.Pass)

	out := r.Serialize()
	// Q16 is column q (SGF keeps "i"), row 4 from the top.
	assert.Contains(t, out, ";B[pd]")
	assert.Contains(t, out, ";W[dp]")
	assert.Contains(t, out, ";B[]")
}

func TestInitStartsFreshGame(t *testing.T) {
	r := NewRecorder()
	r.Add(board.Pass)
	id := r.GameID()
	r.Init()
	assert.Zero(t, r.GamePly())
	assert.NotEqual(t, id, r.GameID())
}

func TestLoadRoundTrip(t *testing.T) {
	r := NewRecorder()
	r.SetKomi(7.5)
	q16, err := board.ParseVertex("Q16")
	require.NoError(t, err)
	d4, err := board.ParseVertex("D4")
	require.NoError(t, err)
	r.Add(q16)
	r.Add(d4)
	r.Add(board.Pass)

	path := filepath.Join(t.TempDir(), "game.sgf")
	require.NoError(t, r.Write(path))

	game, err := Load(path)
	require.NoError(t, err)
	assert.True(t, game.HasKomi)
	assert.Equal(t, 7.5, game.Komi)
	assert.Equal(t, []board.Vertex{q16, d4, board.Pass}, game.Moves)
}

func TestParseIgnoresUnknownProperties(t *testing.T) {
	game, err := Parse("(;FF[4]GM[1]CA[UTF-8]SZ[19]DT[2026-08-23]GN[abc]PB[x]PW[y];B[pd])")
	require.NoError(t, err)
	assert.False(t, game.HasKomi)
	require.Len(t, game.Moves, 1)
	assert.Equal(t, "Q16", game.Moves[0].String())
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"(;FF[4]SZ[13];B[aa])", // wrong board size
		"(;FF[4]SZ[19];B[zz])", // point off the grid
		"(;FF[4]SZ[19];B[a])",  // truncated point
		"(;FF[4]SZ[19];B[aa",   // unterminated property
		"(;KM[six])",           // non-numeric komi
	}
	for _, tc := range cases {
		_, err := Parse(tc)
		assert.ErrorIs(t, err, ErrMalformed, tc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.sgf"))
	require.Error(t, err)
}

func TestWriteCreatesDirectories(t *testing.T) {
	r := NewRecorder()
	r.Add(board.Pass)
	path := filepath.Join(t.TempDir(), "log", "game.sgf")
	require.NoError(t, r.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SZ[19]")
}
