package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tengenbot/tengen/internal/gtp"
)

type fileConfig struct {
	Name            string  `toml:"name"`
	Version         string  `toml:"version"`
	Ponder          bool    `toml:"ponder"`
	Lizzie          bool    `toml:"lizzie"`
	SaveLog         bool    `toml:"save_log"`
	SendList        bool    `toml:"send_list"`
	AllocateOnStart bool    `toml:"allocate_on_start"`
	ResumeFile      string  `toml:"resume_file"`
	WorkingDir      string  `toml:"working_dir"`
	ResignThreshold float64 `toml:"resign_threshold"`
	PonderBudget    string  `toml:"ponder_budget"`
	GenmoveBudget   string  `toml:"genmove_budget"`
	CancelGrace     string  `toml:"cancel_grace"`
	PonderMinLeft   float64 `toml:"ponder_min_left"`
}

func loadConfig(path string) (gtp.Config, error) {
	cfg := gtp.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return gtp.Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("name") {
		name := strings.TrimSpace(raw.Name)
		if name != "" {
			cfg.Name = name
		}
	}

	if meta.IsDefined("version") {
		version := strings.TrimSpace(raw.Version)
		if version != "" {
			cfg.Version = version
		}
	}

	if meta.IsDefined("ponder") {
		cfg.Ponder = raw.Ponder
	}

	if meta.IsDefined("lizzie") {
		cfg.Lizzie = raw.Lizzie
	}

	if meta.IsDefined("save_log") {
		cfg.SaveLog = raw.SaveLog
	}

	if meta.IsDefined("send_list") {
		cfg.SendList = raw.SendList
	}

	if meta.IsDefined("allocate_on_start") {
		cfg.AllocateOnStart = raw.AllocateOnStart
	}

	if meta.IsDefined("resume_file") {
		cfg.ResumeFile = strings.TrimSpace(raw.ResumeFile)
	}

	if meta.IsDefined("working_dir") {
		cfg.WorkingDir = strings.TrimSpace(raw.WorkingDir)
	}

	if meta.IsDefined("resign_threshold") {
		cfg.ResignThreshold = raw.ResignThreshold
	}

	if meta.IsDefined("ponder_budget") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PonderBudget))
		if err != nil {
			return gtp.Config{}, fmt.Errorf("parse ponder_budget: %w", err)
		}
		cfg.PonderBudget = d
	}

	if meta.IsDefined("genmove_budget") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.GenmoveBudget))
		if err != nil {
			return gtp.Config{}, fmt.Errorf("parse genmove_budget: %w", err)
		}
		cfg.GenmoveBudget = d
	}

	if meta.IsDefined("cancel_grace") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CancelGrace))
		if err != nil {
			return gtp.Config{}, fmt.Errorf("parse cancel_grace: %w", err)
		}
		cfg.CancelGrace = d
	}

	if meta.IsDefined("ponder_min_left") {
		cfg.PonderMinLeft = raw.PonderMinLeft
	}

	return cfg, nil
}
