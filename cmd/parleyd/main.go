// Command parleyd serves parley conversations over HTTP with an echo
// responder.
//
// Usage:
//
//	parleyd [flags]
//
// Flags:
//
//	-addr string        Listen address (default: :8000)
//	-data string        Conversation store directory (default: ./data)
//	-delay duration     Pause between streamed fragments (default: 40ms)
//	-origins string     Comma-separated CORS origins
//	-log-level string   Log level: debug, info, warn, error (default: info)
//	-log-format string  Log format: text, json (default: text)
//
// When PARLEYD_TOKEN is set, requests must carry it as a bearer token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fwojciec/parley/echo"
	parleyhttp "github.com/fwojciec/parley/http"
	parleyjson "github.com/fwojciec/parley/json"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parleyd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr      = flag.String("addr", ":8000", "Listen address")
		dataDir   = flag.String("data", "data", "Conversation store directory")
		delay     = flag.Duration("delay", echo.DefaultInterval, "Pause between streamed fragments")
		origins   = flag.String("origins", "", "Comma-separated CORS origins")
		logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat = flag.String("log-format", "text", "Log format: text, json")
	)
	flag.Parse()

	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := parleyjson.NewStore(*dataDir)
	if err != nil {
		return err
	}

	opts := []parleyhttp.ServerOption{parleyhttp.WithServerLogger(logger)}
	if list := splitList(*origins); len(list) > 0 {
		opts = append(opts, parleyhttp.WithAllowedOrigins(list...))
	}
	// Env vars are read here and passed as values.
	if token := os.Getenv("PARLEYD_TOKEN"); token != "" {
		opts = append(opts, parleyhttp.WithRequiredToken(token))
	}
	handler := parleyhttp.NewServer(store, echo.New(echo.WithInterval(*delay)), opts...)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", *addr, "data", *dataDir)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
