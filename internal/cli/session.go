// Package cli hosts the interactive terminal front end: it loads a menu
// template, attaches a stdout transport and feeds stdin lines into the
// session until it closes.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/presentation/tui"
	redisstore "github.com/espalierhq/espalier/pkg/adapters/redis"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/template"
)

// RunOptions configures one interactive session.
type RunOptions struct {
	TemplatePath string
	StartNode    string
	Actor        string
	Debug        bool
	Markdown     bool
	NoBanner     bool

	// RedisAddr enables durable sessions; Resume picks up a stored one.
	RedisAddr string
	Resume    bool
}

// RunSession loads the template and drives a menu session over stdin/stdout.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.NoBanner {
		tui.PrintBanner(espalier.Version)
	}

	raw, err := os.ReadFile(opts.TemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	menu, err := template.Parse(string(raw), nil)
	if err != nil {
		return fmt.Errorf("failed to compile template: %w", err)
	}

	actorName := opts.Actor
	if actorName == "" {
		actorName = "local"
	}
	actor := domain.ActorKey(actorName)
	transport := newStdoutTransport(opts.Markdown)

	engOpts := []espalier.Option{
		espalier.WithTransport(transport),
		espalier.WithExitCommand(""),
	}
	if opts.StartNode != "" {
		engOpts = append(engOpts, espalier.WithStartNode(opts.StartNode))
	}
	if opts.Debug {
		engOpts = append(engOpts, espalier.WithLogger(logger), espalier.WithDebug(true))
	}

	var store ports.SessionStore
	if opts.RedisAddr != "" {
		store = redisstore.New(opts.RedisAddr, "", 0)
		engOpts = append(engOpts, espalier.WithStore(store, opts.TemplatePath))
	}

	var eng *espalier.Engine
	if opts.Resume {
		if store == nil {
			return fmt.Errorf("resume requires a session store")
		}
		sources := map[string]any{opts.TemplatePath: menu}
		eng, err = espalier.Resume(context.Background(), actor, store, sources, engOpts...)
	} else {
		eng, err = espalier.Open(actor, menu, engOpts...)
	}
	if err != nil {
		return err
	}

	return readLoop(os.Stdin, eng, logger)
}

// readLoop feeds input lines into the session until it closes or stdin ends.
func readLoop(in io.Reader, eng *espalier.Engine, logger *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	for !eng.Closed() {
		fmt.Print(prompt())
		if !scanner.Scan() {
			// stdin closed; shut the session down without the exit hook
			return eng.CloseSilently()
		}
		if err := eng.ParseInput(strings.TrimSpace(scanner.Text())); err != nil {
			logger.Error("input dispatch failed", "err", err)
			return err
		}
	}
	return scanner.Err()
}

func prompt() string {
	return termenv.String("> ").Foreground(termenv.ANSIGreen).String()
}

func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelInfo)
}
