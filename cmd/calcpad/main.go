// Command calcpad is the calculator keypad client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"nickandperla.net/calcpad/internal/config"
	"nickandperla.net/calcpad/pkg/calcpad"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var (
		serverURL = flag.String("server", cfg.ServerURL, "Calculator service URL")
		local     = flag.Bool("local", false, "Evaluate in process instead of calling the service")
		dbPath    = flag.String("db", "", "SQLite database path for local mode (default: in memory)")
		keys      = flag.String("keys", "", "Press a key script, print the display and exit")
		verbose   = flag.Bool("v", false, "Log debug output to stderr")
	)
	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []calcpad.Option{
		calcpad.WithLogger(logger),
		calcpad.WithTimeout(cfg.RequestTimeout),
		calcpad.WithMaxHistory(cfg.MaxHistory),
		calcpad.WithDefaultSettings(cfg.Settings()),
	}
	configureBackend(&opts, *serverURL, *local, *dbPath)

	runtime, err := calcpad.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer runtime.Close()

	ctx := context.Background()
	if err := runtime.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", "error", err)
	}

	switch {
	case *keys != "":
		err := runtime.Keys(ctx, *keys)
		fmt.Println(runtime.Display())
		if err != nil {
			runtime.Close()
			os.Exit(1)
		}

	case !term.IsTerminal(int(os.Stdin.Fd())):
		if err := runLines(ctx, runtime, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			runtime.Close()
			os.Exit(1)
		}

	default:
		runREPL(ctx, runtime)
	}
}

// configureBackend selects the service client or an in-process backend.
func configureBackend(opts *[]calcpad.Option, serverURL string, local bool, dbPath string) {
	switch {
	case dbPath != "":
		*opts = append(*opts, calcpad.WithSQLiteStore(dbPath))
	case local:
		*opts = append(*opts, calcpad.WithLocal())
	default:
		*opts = append(*opts, calcpad.WithServer(serverURL))
	}
}
