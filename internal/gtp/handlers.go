package gtp

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tengenbot/tengen/internal/board"
	"github.com/tengenbot/tengen/internal/observability"
	"github.com/tengenbot/tengen/internal/sgf"
)

// commandNames is the closed command set, in list_commands order. Any other
// name is a protocol-level failure.
var commandNames = []string{
	"protocol_version",
	"name",
	"version",
	"known_command",
	"list_commands",
	"boardsize",
	"clear_board",
	"komi",
	"time_left",
	"genmove",
	"play",
	"undo",
	"final_score",
	"lz-analyze",
	"kgs-time_settings",
	"time_settings",
	"set_free_handicap",
	"fixed_handicap",
	"place_free_handicap",
	"gogui-play_sequence",
	"kgs-game_over",
	"quit",
}

func commandList() string {
	return strings.Join(commandNames, "\n")
}

// handlerFunc mutates session state and returns the response body plus the
// success flag.
type handlerFunc func(s *Session, args []string) (string, bool)

var handlers = map[string]handlerFunc{
	"protocol_version":    (*Session).onProtocolVersion,
	"name":                (*Session).onName,
	"version":             (*Session).onVersion,
	"known_command":       (*Session).onKnownCommand,
	"list_commands":       (*Session).onListCommands,
	"boardsize":           (*Session).onBoardsize,
	"clear_board":         (*Session).onClearBoard,
	"komi":                (*Session).onKomi,
	"time_left":           (*Session).onTimeLeft,
	"genmove":             (*Session).onGenmove,
	"play":                (*Session).onPlay,
	"undo":                (*Session).onUndo,
	"final_score":         (*Session).onFinalScore,
	"lz-analyze":          (*Session).onLzAnalyze,
	"kgs-time_settings":   (*Session).onKgsTimeSettings,
	"time_settings":       (*Session).onTimeSettings,
	"set_free_handicap":   (*Session).onSetFreeHandicap,
	"fixed_handicap":      (*Session).onFixedHandicap,
	"place_free_handicap": (*Session).onFixedHandicap,
	"gogui-play_sequence": (*Session).onGoguiPlaySequence,
	"kgs-game_over":       (*Session).onGameOver,
	"quit":                (*Session).onQuit,
}

func (s *Session) onProtocolVersion(args []string) (string, bool) {
	return "2", true
}

func (s *Session) onName(args []string) (string, bool) {
	return s.cfg.Name, true
}

func (s *Session) onVersion(args []string) (string, bool) {
	// Analysis GUIs probe for a Leela Zero version before enabling
	// lz-analyze, so lizzie mode answers one.
	if s.cfg.Lizzie {
		return "0.16", true
	}
	return s.cfg.Version, true
}

func (s *Session) onKnownCommand(args []string) (string, bool) {
	if len(args) >= 1 {
		for _, name := range commandNames {
			if name == args[0] {
				return "true", true
			}
		}
	}
	return "false", true
}

func (s *Session) onListCommands(args []string) (string, bool) {
	return commandList(), true
}

// onBoardsize validates the only supported size. Any other request is a
// hard failure, not a reconfiguration.
func (s *Session) onBoardsize(args []string) (string, bool) {
	if len(args) < 1 {
		return "boardsize requires an argument", false
	}
	size, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Sprintf("invalid board size %q", args[0]), false
	}
	if size != board.Size {
		return fmt.Sprintf("this build plays only on %dx%d boards", board.Size, board.Size), false
	}
	return "", true
}

func (s *Session) onClearBoard(args []string) (string, bool) {
	s.stopStreaming()
	s.board.Init()
	if err := s.ensureEvaluator(); err != nil {
		return "evaluator unavailable", false
	}
	s.rec.Init()
	s.rec.SetKomi(s.engine.Komi())
	s.engineColor = board.Empty
	s.goPonder = false

	if s.cfg.ResumeFile != "" {
		if body, ok := s.resumeFromRecord(); !ok {
			return body, false
		}
	}

	// A record already written for the previous game means a new one is
	// starting: rotate to fresh log/record paths.
	if s.saveLog {
		if _, err := os.Stat(s.sgfPath); err == nil {
			s.derivePaths()
			if err := s.openLogFile(); err != nil {
				s.log.Warn().Err(err).Msg("log rotation failed")
			}
		}
	}

	s.log.Info().Msg("cleared board.")
	return "", true
}

// resumeFromRecord replays the configured record onto the fresh board so
// play continues mid-game. The record's moves also seed the recorder, keeping
// later record writes complete.
func (s *Session) resumeFromRecord() (string, bool) {
	game, err := sgf.Load(s.cfg.ResumeFile)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.cfg.ResumeFile).Msg("resume failed")
		return "cannot resume from record", false
	}
	if err := s.board.Replay(game.Moves); err != nil {
		s.log.Error().Err(err).Str("path", s.cfg.ResumeFile).Msg("resume replay failed")
		return "cannot resume from record", false
	}
	if game.HasKomi {
		s.engine.SetKomi(game.Komi)
		s.rec.SetKomi(game.Komi)
	}
	for _, v := range game.Moves {
		s.rec.Add(v)
	}
	s.log.Info().Int("moves", len(game.Moves)).Msg("resumed from record.")
	s.logBoard()
	return "", true
}

func (s *Session) onKomi(args []string) (string, bool) {
	if len(args) < 1 {
		return "komi requires an argument", false
	}
	komi, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Sprintf("invalid komi %q", args[0]), false
	}
	s.engine.SetKomi(komi)
	s.rec.SetKomi(komi)
	s.log.Info().Msgf("set komi=%.1f.", komi)
	return "", true
}

// onTimeLeft updates the clock from the controller. The update only applies
// when it concerns the engine's color (or no color has been assigned yet),
// and it supersedes internal time bookkeeping.
func (s *Session) onTimeLeft(args []string) (string, bool) {
	if len(args) < 2 {
		return "time_left requires a color and seconds", false
	}
	c, err := board.ParseColor(args[0])
	if err != nil {
		return fmt.Sprintf("invalid color %q", args[0]), false
	}
	left, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Sprintf("invalid time %q", args[1]), false
	}
	if s.engineColor == board.Empty || s.engineColor == c {
		s.engine.SetLeftTime(left)
	}
	s.needTimeControl = false
	return "", true
}

func (s *Session) onGenmove(args []string) (string, bool) {
	t0 := time.Now()
	s.stopStreaming()

	if err := s.ensureEvaluator(); err != nil {
		return "evaluator unavailable", false
	}
	if len(args) < 1 {
		return "genmove requires a color", false
	}
	c, err := board.ParseColor(args[0])
	if err != nil {
		return fmt.Sprintf("invalid color %q", args[0]), false
	}
	if c != s.board.SideToMove() {
		return "genmove command passed wrong color.", false
	}

	s.engineColor = s.board.SideToMove()
	s.goPonder = true
	observability.RecordThink("genmove")

	res, err := s.engine.Think(context.Background(), s.board, ThinkOptions{Budget: s.genmoveBudget()})
	if err != nil {
		return "search failed", false
	}

	move := res.Move
	resign := move != board.Pass && res.WinRate < s.cfg.ResignThreshold
	if resign {
		move = board.Pass
	}

	if err := s.board.Play(move); err != nil {
		return fmt.Sprintf("engine produced illegal move %s", move), false
	}
	s.recordMove(move)
	s.logBoard()
	if s.board.DoublePass() {
		s.logFinalResult()
	}

	if s.needTimeControl {
		elapsed := time.Since(t0).Seconds()
		left := s.engine.LeftTime() - elapsed
		if left < 0 {
			left = 0
		}
		s.engine.SetLeftTime(left)
	}

	switch {
	case resign:
		return "resign", true
	case move == board.Pass:
		return "pass", true
	default:
		return move.String(), true
	}
}

// genmoveBudget picks the per-move think budget from the clock: inside (or
// close to) byoyomi the move must fit one period, otherwise a slice of the
// remaining main time, bounded by the configured default.
func (s *Session) genmoveBudget() time.Duration {
	budget := s.cfg.GenmoveBudget
	byoyomi := s.engine.Byoyomi()
	left := s.engine.LeftTime()
	if byoyomi > 0 && left < byoyomi*2 {
		return time.Duration(byoyomi * float64(time.Second))
	}
	if left > 0 {
		slice := time.Duration(left / 30.0 * float64(time.Second))
		if slice < budget {
			return slice
		}
	}
	return budget
}

func (s *Session) onPlay(args []string) (string, bool) {
	s.stopStreaming()
	// genmove for our side follows immediately; no point pondering now.
	s.goPonder = false

	if len(args) < 2 {
		return "play requires a color and a vertex", false
	}
	c, err := board.ParseColor(args[0])
	if err != nil {
		return fmt.Sprintf("invalid color %q", args[0]), false
	}
	if c != s.board.SideToMove() {
		return "play command passed wrong color.", false
	}
	move, err := board.ParseVertex(args[1])
	if err != nil {
		return fmt.Sprintf("invalid vertex %q", args[1]), false
	}
	if err := s.board.Play(move); err != nil {
		return fmt.Sprintf("illegal move %s", args[1]), false
	}

	s.recordMove(move)
	s.logBoard()
	if s.board.DoublePass() {
		s.logFinalResult()
	}
	return "", true
}

// onUndo rebuilds the position from history minus the last move. Pass
// bookkeeping survives the replay the way the game saw it, including the
// handicap adjustments that a plain replay would reapply differently.
func (s *Session) onUndo(args []string) (string, bool) {
	s.stopStreaming()

	hist := s.board.History()
	if len(hist) == 0 {
		return "", true
	}

	passBlack := s.board.NumPasses(board.Black)
	passWhite := s.board.NumPasses(board.White)
	if s.board.MoveBefore() == board.Pass {
		mover := s.board.SideToMove().Opponent()
		if mover == board.Black {
			passBlack--
		} else {
			passWhite--
		}
	}

	hist = hist[:len(hist)-1]
	if err := s.board.Replay(hist); err != nil {
		return "undo replay failed", false
	}
	s.board.SetNumPasses(board.Black, passBlack)
	s.board.SetNumPasses(board.White, passWhite)

	s.rec.Init()
	s.rec.SetKomi(s.engine.Komi())
	for _, v := range hist {
		s.rec.Add(v)
	}
	if s.saveLog {
		s.writeRecord()
	}
	s.logBoard()
	return "", true
}

func (s *Session) onFinalScore(args []string) (string, bool) {
	return s.logFinalResult(), true
}

// onLzAnalyze arms streaming-analysis mode. The actual streamed think starts
// on the next loop iteration, as a ponder with an analysis writer attached.
func (s *Session) onLzAnalyze(args []string) (string, bool) {
	idx := 0
	if len(args) > idx {
		if _, err := board.ParseColor(args[idx]); err == nil {
			idx++
		}
	}
	interval := 100 * time.Millisecond
	if len(args) > idx {
		cs, err := strconv.Atoi(args[idx])
		if err != nil || cs < 0 {
			return fmt.Sprintf("invalid analysis interval %q", args[idx]), false
		}
		interval = time.Duration(cs) * 10 * time.Millisecond
	}

	if !s.engine.HasEvaluator() {
		if err := s.ensureEvaluator(); err != nil {
			return "evaluator unavailable", false
		}
		s.board.Init()
		s.rec.Init()
		s.engineColor = board.Empty
	}
	s.goPonder = true
	s.streamInterval = interval
	return "", true
}

func (s *Session) onKgsTimeSettings(args []string) (string, bool) {
	if len(args) < 2 {
		return "kgs-time_settings requires a system and times", false
	}
	if args[0] == "byoyomi" && len(args) >= 3 {
		return s.applyTimeSettings(args[1], args[2])
	}
	return s.applyTimeSettings(args[1], "")
}

func (s *Session) onTimeSettings(args []string) (string, bool) {
	if len(args) < 2 {
		return "time_settings requires main and byoyomi times", false
	}
	return s.applyTimeSettings(args[0], args[1])
}

func (s *Session) applyTimeSettings(mainStr, byoyomiStr string) (string, bool) {
	mainTime, err := strconv.ParseFloat(mainStr, 64)
	if err != nil {
		return fmt.Sprintf("invalid main time %q", mainStr), false
	}
	s.engine.SetMainTime(mainTime)
	s.engine.SetLeftTime(mainTime)
	if byoyomiStr != "" {
		byoyomi, err := strconv.ParseFloat(byoyomiStr, 64)
		if err != nil {
			return fmt.Sprintf("invalid byoyomi %q", byoyomiStr), false
		}
		s.engine.SetByoyomi(byoyomi)
	}
	s.log.Info().Msgf("main time=%.1f[sec], byoyomi=%.1f[sec]", s.engine.MainTime(), s.engine.Byoyomi())
	return "", true
}

// onSetFreeHandicap places the given black stones. Bookkeeping white passes
// keep the turn order consistent between placements and are cancelled from
// the pass counts; white moves first after handicap placement.
func (s *Session) onSetFreeHandicap(args []string) (string, bool) {
	if len(args) < 1 {
		return "set_free_handicap requires vertices", false
	}
	for i, arg := range args {
		v, err := board.ParseVertex(arg)
		if err != nil || !v.OnBoard() {
			return fmt.Sprintf("invalid vertex %q", arg), false
		}
		if err := s.board.Play(v); err != nil {
			return fmt.Sprintf("illegal handicap stone %s", arg), false
		}
		s.rec.Add(v)
		if i != len(args)-1 {
			s.interleavePass(board.White)
		}
	}
	s.engineColor = board.White
	if s.saveLog {
		s.writeRecord()
	}
	s.log.Info().Msg("set free handicap.")
	return "", true
}

func (s *Session) onFixedHandicap(args []string) (string, bool) {
	if len(args) < 1 {
		return "fixed_handicap requires a stone count", false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Sprintf("invalid handicap %q", args[0]), false
	}
	vs, err := board.HandicapVertices(n)
	if err != nil {
		return fmt.Sprintf("unsupported handicap %d", n), false
	}
	for i, v := range vs {
		if err := s.board.Play(v); err != nil {
			return fmt.Sprintf("illegal handicap stone %s", v), false
		}
		s.rec.Add(v)
		if i != len(vs)-1 {
			s.interleavePass(board.White)
		}
	}
	s.engineColor = board.White
	if s.saveLog {
		s.writeRecord()
	}
	s.log.Info().Msg("placed handicap stones.")
	return "", true
}

// interleavePass plays a bookkeeping pass for c and cancels it from the
// pass count.
func (s *Session) interleavePass(c board.Color) {
	s.board.Play(board.Pass)
	s.rec.Add(board.Pass)
	s.board.DecrementPasses(c)
}

// onGoguiPlaySequence replays a whole game from color/vertex pairs,
// inserting bookkeeping passes wherever the sequence skips a turn.
func (s *Session) onGoguiPlaySequence(args []string) (string, bool) {
	for i := 1; i < len(args); i += 2 {
		c, err := board.ParseColor(args[i-1])
		if err != nil {
			return fmt.Sprintf("invalid color %q", args[i-1]), false
		}
		if s.board.SideToMove() != c {
			s.interleavePass(s.board.SideToMove())
		}
		v, err := board.ParseVertex(args[i])
		if err != nil {
			return fmt.Sprintf("invalid vertex %q", args[i]), false
		}
		if err := s.board.Play(v); err != nil {
			return fmt.Sprintf("illegal move %s", args[i]), false
		}
		s.rec.Add(v)
	}
	if s.saveLog {
		s.writeRecord()
	}
	s.logBoard()
	s.log.Info().Msg("sequence loaded.")
	return "", true
}

func (s *Session) onGameOver(args []string) (string, bool) {
	s.goPonder = false
	return "", true
}

func (s *Session) onQuit(args []string) (string, bool) {
	s.stopStreaming()
	s.logFinalResult()
	observability.LogSummary(s.log)
	return "", true
}

// recordMove appends the move to the game record and persists it when
// logging is on.
func (s *Session) recordMove(v board.Vertex) {
	s.rec.Add(v)
	if s.saveLog {
		s.writeRecord()
	}
}

func (s *Session) writeRecord() {
	if err := s.rec.Write(s.sgfPath); err != nil {
		s.log.Warn().Err(err).Msg("record write failed")
	}
}

func (s *Session) logBoard() {
	render := s.board.Render(nil)
	if s.logFile != nil {
		fmt.Fprint(s.logFile, render)
	}
	for _, line := range strings.Split(strings.TrimRight(render, "\n"), "\n") {
		s.log.Debug().Msg(line)
	}
}

// logFinalResult scores the position, prints the ownership map to the
// diagnostic channel (and log file), and returns the result string.
func (s *Session) logFinalResult() string {
	margin, owner := s.engine.FinalScore(s.board)

	render := s.board.Render(owner)
	if s.logFile != nil {
		fmt.Fprint(s.logFile, render)
	}

	result := "0"
	if margin > 0 {
		result = fmt.Sprintf("B+%.1f", margin)
	} else if margin < 0 {
		result = fmt.Sprintf("W+%.1f", -margin)
	}
	s.log.Info().Str("result", result).Msg("final score")
	for _, line := range strings.Split(strings.TrimRight(render, "\n"), "\n") {
		s.log.Debug().Msg(line)
	}
	return result
}
