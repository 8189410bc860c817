// Command demo replays a script of text edits from several frontends through a merge
// tree acting as the ordering authority.
//
// A script is a JSONL file with one request per line:
//
//	{"type": "edit", "id": "alice", "text": "hello world"}
//	{"type": "sync", "id": "bob"}
//	{"type": "ack"}
//
// An edit carries the whole text of a frontend as it sees it; the difference to the
// frontend's previous view is applied as insert and remove ops. A sync brings the
// frontend up to date with every sequenced op. Edits of the local frontend stay pending
// until an ack request sequences them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:  "demo",
		Usage: "replay collaborative edits through a merge tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "script",
				Usage:    "JSONL file with edit, sync and ack requests, or - for stdin",
				Required: true,
				EnvVars:  []string{"MERGETREE_SCRIPT"},
			},
			&cli.StringFlag{
				Name:    "local",
				Usage:   "frontend whose edits are pending until acknowledged",
				Value:   "local",
				EnvVars: []string{"MERGETREE_LOCAL"},
			},
			&cli.StringFlag{
				Name:    "debug-file",
				Usage:   "file to dump a snapshot of the tree after each step, in JSONL format",
				EnvVars: []string{"MERGETREE_DEBUG_FILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log verbosity level (eg: warn, info, debug)",
				Value:   "info",
				EnvVars: []string{"MERGETREE_LOG_LEVEL", "LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log output format (text or json)",
				Value:   "text",
				EnvVars: []string{"MERGETREE_LOG_FORMAT"},
			},
			&cli.BoolFlag{
				Name:    "dump",
				Usage:   "print the final tree to stdout",
				EnvVars: []string{"MERGETREE_DUMP"},
			},
		},
		Action: runReplay,
	}
	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cctx.String("log-format")) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func openScript(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func runReplay(cctx *cli.Context) error {
	logger := configLogger(cctx, os.Stderr)

	script, err := openScript(cctx.String("script"))
	if err != nil {
		return fmt.Errorf("opening script: %w", err)
	}
	defer script.Close()

	var debug *debugWriter
	if path := cctx.String("debug-file"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("opening debug file: %w", err)
		}
		debug = runDebug(f, logger)
		defer debug.Close()
	}

	s, err := newState(cctx.String("local"), logger, debug)
	if err != nil {
		return err
	}
	if err := s.replay(cctx.Context, script); err != nil {
		return err
	}
	for _, line := range s.summary() {
		fmt.Println(line)
	}
	if cctx.Bool("dump") {
		fmt.Println(s.dump())
	}
	return nil
}
