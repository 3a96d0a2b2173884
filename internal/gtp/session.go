package gtp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tengenbot/tengen/internal/board"
	"github.com/tengenbot/tengen/internal/observability"
	"github.com/tengenbot/tengen/internal/sgf"
)

// Config is the session's process-wide configuration, fixed at start.
type Config struct {
	Name    string
	Version string

	// Ponder enables background thinking between commands.
	Ponder bool
	// Lizzie tunes the session for analysis GUIs: save-log off, version
	// string pinned to what those clients probe for, unbounded streaming
	// thinks.
	Lizzie bool
	// SaveLog writes a per-game log file and SGF record under WorkingDir.
	SaveLog bool
	// SendList emits the command list once at session start, for match
	// servers that expect it before any query.
	SendList bool
	// AllocateOnStart acquires the evaluator eagerly at construction instead
	// of deferring to first use.
	AllocateOnStart bool
	// ResumeFile names an SGF record to reconstruct on clear_board, so an
	// interrupted game continues from its last recorded position.
	ResumeFile string
	WorkingDir string

	// ResignThreshold is the winning rate below which genmove resigns.
	ResignThreshold float64

	// Policy constants. Tuning choices, not correctness requirements.
	PonderBudget    time.Duration // default think budget while pondering
	StreamingBudget time.Duration // think budget in streaming-analysis mode
	GenmoveBudget   time.Duration // per-move budget for genmove
	CancelGrace     time.Duration // bounded wait after cooperative cancel
	AcquireDelay    time.Duration // pre-acquisition delay in rating mode
	// PonderMinLeft is the main-time floor (seconds) under which pondering
	// stops unless byoyomi periods exist.
	PonderMinLeft float64
}

func DefaultConfig() Config {
	return Config{
		Name:            "tengen",
		Version:         "1.2.0",
		Ponder:          true,
		SaveLog:         false,
		WorkingDir:      ".",
		ResignThreshold: 0.10,
		PonderBudget:    100 * time.Second,
		StreamingBudget: 24 * time.Hour,
		GenmoveBudget:   5 * time.Second,
		CancelGrace:     10 * time.Millisecond,
		AcquireDelay:    5 * time.Second,
		PonderMinLeft:   10.0,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.WorkingDir == "" {
		c.WorkingDir = def.WorkingDir
	}
	if c.ResignThreshold <= 0 {
		c.ResignThreshold = def.ResignThreshold
	}
	if c.PonderBudget <= 0 {
		c.PonderBudget = def.PonderBudget
	}
	if c.StreamingBudget <= 0 {
		c.StreamingBudget = def.StreamingBudget
	}
	if c.GenmoveBudget <= 0 {
		c.GenmoveBudget = def.GenmoveBudget
	}
	if c.CancelGrace <= 0 {
		c.CancelGrace = def.CancelGrace
	}
	if c.AcquireDelay < 0 {
		c.AcquireDelay = def.AcquireDelay
	}
	if c.PonderMinLeft <= 0 {
		c.PonderMinLeft = def.PonderMinLeft
	}
	return c
}

// lockedWriter keeps the protocol stream coherent if a streamed analysis
// line lands while the loop writes a response: a cancelled think may keep
// running past its grace period.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// Session drives the GTP conversation until quit. Session state is owned
// exclusively by the loop goroutine; the input reader touches nothing but
// the command queue.
type Session struct {
	cfg    Config
	in     io.Reader
	out    io.Writer
	log    zerolog.Logger
	queue  *CommandQueue
	ponder *ponderCoordinator
	engine Engine
	board  *board.Board
	rec    *sgf.Recorder

	id              string
	engineColor     board.Color
	goPonder        bool
	streamInterval  time.Duration // <= 0: streaming analysis disabled
	needTimeControl bool
	saveLog         bool
	logPath         string
	sgfPath         string
	logFile         *os.File
	fatal           error
}

// NewSession wires the connector. in is the raw command stream (stdin), out
// the protocol stream (stdout); log is the diagnostic channel.
func NewSession(cfg Config, engine Engine, in io.Reader, out io.Writer, log zerolog.Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.Lizzie {
		cfg.SaveLog = false
	}

	s := &Session{
		cfg:             cfg,
		in:              in,
		out:             &lockedWriter{w: out},
		queue:           NewCommandQueue(),
		ponder:          newPonderCoordinator(cfg.CancelGrace),
		engine:          engine,
		board:           board.New(),
		rec:             sgf.NewRecorder(),
		id:              uuid.NewString(),
		engineColor:     board.Empty,
		streamInterval:  -1,
		needTimeControl: true,
		saveLog:         cfg.SaveLog,
	}
	s.log = log.With().Str("session", s.id).Logger()
	s.rec.SetPlayers(cfg.Name, "")

	s.derivePaths()
	if s.saveLog {
		if err := s.openLogFile(); err != nil {
			return nil, err
		}
	}

	if cfg.SendList {
		if err := WriteResponse(s.out, Response{ID: -1, Body: commandList(), Success: true}, false); err != nil {
			return nil, fmt.Errorf("gtp: send command list: %w", err)
		}
	}

	if cfg.AllocateOnStart {
		if err := s.ensureEvaluator(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) derivePaths() {
	ts := time.Now().Format("20060102_150405")
	s.logPath = filepath.Join(s.cfg.WorkingDir, "log", ts+".log")
	s.sgfPath = filepath.Join(s.cfg.WorkingDir, "log", ts+".sgf")
}

func (s *Session) openLogFile() error {
	if err := os.MkdirAll(filepath.Dir(s.logPath), 0o755); err != nil {
		return fmt.Errorf("gtp: create log dir: %w", err)
	}
	f, err := os.Create(s.logPath)
	if err != nil {
		return fmt.Errorf("gtp: open log file: %w", err)
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
	s.logFile = f
	s.engine.SetLogWriter(f)
	return nil
}

// Run executes the session loop until quit is dispatched. The input reader
// goroutine runs for the process lifetime; it is not joined.
func (s *Session) Run() error {
	go ReadInput(s.in, s.queue)

	running := true
	for running {
		if s.shouldStartPonder() {
			if err := s.ensureEvaluator(); err != nil {
				return err
			}
			s.startPonder()
		}

		line := s.queue.PopBlocking()

		// Pondering and dispatch are mutually exclusive: the coordinator
		// must be idle before the command below runs.
		s.ponder.StopAndWait()

		cmd := ParseCommand(line)
		if cmd.Name == "" {
			continue
		}
		running = s.execute(cmd)
		if s.fatal != nil {
			break
		}
	}

	if s.logFile != nil {
		s.engine.SetLogWriter(nil)
		s.logFile.Close()
		s.logFile = nil
	}
	return s.fatal
}

// shouldStartPonder gates the idle -> pondering transition: pondering must
// be enabled, there must be an opponent move to respond to (not a pass), and
// enough clock must remain to make background work worthwhile.
func (s *Session) shouldStartPonder() bool {
	if !s.cfg.Ponder || !s.goPonder {
		return false
	}
	if s.board.MoveBefore() == board.Pass {
		return false
	}
	return s.engine.LeftTime() > s.cfg.PonderMinLeft || s.engine.Byoyomi() != 0
}

func (s *Session) ponderBudget() time.Duration {
	if s.cfg.Lizzie || s.streamInterval > 0 {
		return s.cfg.StreamingBudget
	}
	byoyomi := s.engine.Byoyomi()
	if byoyomi > 0 && s.engine.MainTime() > 0 && s.engine.LeftTime() < byoyomi*2 {
		return time.Duration(byoyomi * 2 * float64(time.Second))
	}
	return s.cfg.PonderBudget
}

func (s *Session) startPonder() {
	kind := "ponder"
	opts := ThinkOptions{
		Budget: s.ponderBudget(),
		Ponder: true,
	}
	if s.streamInterval > 0 {
		kind = "analyze"
		opts.AnalysisInterval = s.streamInterval
		opts.AnalysisOut = s.out
	}
	observability.RecordThink(kind)

	b := s.board.Clone()
	s.ponder.Start(func(ctx context.Context) {
		if _, err := s.engine.Think(ctx, b, opts); err != nil {
			s.log.Warn().Err(err).Msg("background think failed")
		}
	})
}

// ensureEvaluator acquires the evaluator resource on first need. Acquisition
// can take tens of seconds, which is why it is deferred past the protocol
// handshake unless AllocateOnStart is set. In rating mode (no log, no
// ponder) a short delay avoids racing the opponent's own setup.
func (s *Session) ensureEvaluator() error {
	if s.engine.HasEvaluator() {
		return nil
	}
	s.log.Info().Msg("allocating evaluator...")
	if !s.saveLog && !s.cfg.Ponder && s.cfg.AcquireDelay > 0 {
		time.Sleep(s.cfg.AcquireDelay)
	}
	if err := s.engine.AcquireEvaluator(); err != nil {
		s.fatal = fmt.Errorf("gtp: acquire evaluator: %w", err)
		return s.fatal
	}
	return nil
}

// stopStreaming ends any streamed analysis and disables streaming mode.
func (s *Session) stopStreaming() {
	s.engine.Cancel()
	s.streamInterval = -1
}

// execute dispatches one parsed command and writes its response. The return
// value is false only for quit.
func (s *Session) execute(cmd Command) bool {
	if s.logFile != nil {
		fmt.Fprintln(s.logFile, cmd.Name, strings.Join(cmd.Args, " "))
	}

	// A streamed response is still open: terminate it with the protocol
	// blank line before this command produces output of its own.
	if s.streamInterval > 0 {
		fmt.Fprint(s.out, "\n")
		s.stopStreaming()
	}

	body, ok := s.dispatch(cmd)
	observability.RecordCommand(cmd.Name, ok)

	streaming := s.streamInterval > 0
	if err := WriteResponse(s.out, Response{ID: cmd.ID, Body: body, Success: ok}, streaming); err != nil {
		s.log.Error().Err(err).Msg("write response failed")
	}
	return cmd.Name != "quit"
}

func (s *Session) dispatch(cmd Command) (string, bool) {
	h, known := handlers[cmd.Name]
	if !known {
		s.log.Warn().Str("command", cmd.Name).Msg("unknown command")
		return "unknown command.", false
	}
	body, ok := h(s, cmd.Args)
	if !ok {
		s.log.Warn().Str("command", cmd.Name).Str("reason", body).Msg("command failed")
	}
	return body, ok
}
