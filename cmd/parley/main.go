// Command parley is a terminal chat client for a parley server.
//
// Usage:
//
//	parley [flags]
//
// Flags:
//
//	-url string           Server base URL (default from config, then $PARLEY_URL)
//	-token string         Bearer token (default from config, then $PARLEY_TOKEN)
//	-config string        Path to config file (default: ~/.parley/config.yaml)
//	-conversation string  Conversation ID to resume
//	-save string          Write the transcript as JSON on exit
//	-export string        Write the transcript as HTML on exit
//	-log string           Write logs to this file
//	-log-level string     Log level: debug, info, warn, error (default: info)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fwojciec/parley"
	bt "github.com/fwojciec/parley/bubbletea"
	"github.com/fwojciec/parley/chat"
	"github.com/fwojciec/parley/goldmark"
	parleyhttp "github.com/fwojciec/parley/http"
	parleyjson "github.com/fwojciec/parley/json"
	"github.com/fwojciec/parley/yaml"
	"github.com/google/uuid"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		urlFlag      = flag.String("url", "", "Server base URL")
		tokenFlag    = flag.String("token", "", "Bearer token")
		configPath   = flag.String("config", "", "Path to config file (default: ~/.parley/config.yaml)")
		conversation = flag.String("conversation", "", "Conversation ID to resume")
		savePath     = flag.String("save", "", "Write the transcript as JSON on exit")
		exportPath   = flag.String("export", "", "Write the transcript as HTML on exit")
		logPath      = flag.String("log", "", "Write logs to this file")
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	path := *configPath
	if path == "" {
		p, err := yaml.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	fileCfg, err := yaml.Load(path)
	if err != nil {
		return err
	}

	// Env vars are read here and passed as values.
	cfg := resolveConfig(fileCfg, *urlFlag, *tokenFlag, os.Getenv("PARLEY_URL"), os.Getenv("PARLEY_TOKEN"))
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
		fileCfg.SessionID = cfg.SessionID
		if err := yaml.Save(path, fileCfg); err != nil {
			return fmt.Errorf("save session id: %w", err)
		}
	}

	logger, closeLog, err := openLogger(*logPath, *logLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	client := parleyhttp.New(
		parleyhttp.WithBaseURL(cfg.BaseURL),
		parleyhttp.WithToken(cfg.Token),
		parleyhttp.WithLogger(logger),
	)
	machine := chat.New(client, client, cfg.SessionID, chat.WithLogger(logger))
	defer machine.Close()

	if *conversation != "" {
		err = machine.Load(ctx, *conversation)
	} else {
		err = machine.Create(ctx, "")
	}
	if err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}
	logger.Info("conversation ready", "conversation", machine.Conversation().ID, "url", cfg.BaseURL)

	if _, err := bt.Run(ctx, bt.New(machine, parley.DefaultTheme())); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	machine.Close()

	conv := machine.Conversation()
	if err := writeTranscripts(conv, *savePath, *exportPath); err != nil {
		return err
	}
	if len(conv.Messages) > 0 {
		fmt.Fprintf(os.Stderr, "Resume with: parley -conversation %s\n", conv.ID)
	}
	return nil
}

// resolveConfig layers flag values over env values over the config file.
func resolveConfig(file parley.Config, urlFlag, tokenFlag, urlEnv, tokenEnv string) parley.Config {
	cfg := file
	cfg.BaseURL = firstNonEmpty(urlFlag, urlEnv, file.BaseURL)
	cfg.Token = firstNonEmpty(tokenFlag, tokenEnv, file.Token)
	return cfg.WithDefaults()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// openLogger returns a logger writing to path, or a discarding logger when
// path is empty. The terminal belongs to the TUI.
func openLogger(path, level string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return newLogger(f, lvl), func() { f.Close() }, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func writeTranscripts(conv parley.Conversation, savePath, exportPath string) error {
	if savePath != "" {
		if err := parleyjson.Save(savePath, conv); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
	}
	if exportPath != "" && len(conv.Messages) > 0 {
		out, err := goldmark.New().ExportHTML(conv)
		if err != nil {
			return fmt.Errorf("export transcript: %w", err)
		}
		if err := os.WriteFile(exportPath, out, 0o644); err != nil {
			return fmt.Errorf("export transcript: %w", err)
		}
	}
	return nil
}
