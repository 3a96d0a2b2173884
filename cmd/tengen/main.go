package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tengenbot/tengen/internal/gtp"
	"github.com/tengenbot/tengen/internal/logging"
	"github.com/tengenbot/tengen/internal/observability"
	"github.com/tengenbot/tengen/internal/search"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file")
		lizzie     = flag.Bool("lizzie", false, "tune for analysis GUIs (lz-analyze)")
		noPonder   = flag.Bool("no-ponder", false, "disable background thinking between commands")
		saveLog    = flag.Bool("save-log", false, "write per-game log and record files")
		sendList   = flag.Bool("send-list", false, "emit the command list once at startup")
		allocate   = flag.Bool("allocate-on-start", false, "acquire the evaluator before the first command")
		resumeFile = flag.String("resume", "", "SGF record to reconstruct on clear_board")
		workingDir = flag.String("working-dir", "", "directory for log and record files")
	)
	flag.Parse()

	logging.ConfigureRuntime()
	observability.RegisterMetrics()

	cfg := gtp.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tengen: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags win over the config file.
	if *lizzie {
		cfg.Lizzie = true
	}
	if *noPonder {
		cfg.Ponder = false
	}
	if *saveLog {
		cfg.SaveLog = true
	}
	if *sendList {
		cfg.SendList = true
	}
	if *allocate {
		cfg.AllocateOnStart = true
	}
	if *resumeFile != "" {
		cfg.ResumeFile = *resumeFile
	}
	if *workingDir != "" {
		cfg.WorkingDir = *workingDir
	}

	session, err := gtp.NewSession(cfg, search.NewTree(), os.Stdin, os.Stdout, logging.Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "tengen: %v\n", err)
		os.Exit(1)
	}
	if err := session.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tengen: %v\n", err)
		os.Exit(1)
	}
}
