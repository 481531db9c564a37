package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"acadrive/internal/cli"
	"acadrive/internal/config"
	"acadrive/internal/logger"
)

func main() {
	cfg := config.Load()

	loc := logger.Location(cfg.Log.Timezone)
	// Diagnostics go to stderr so command output stays pipeable.
	log := logger.InitWriter(os.Stderr, cfg.Log.IsDev(), cfg.Log.SentryDSN, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var app *cli.App
	root := cli.NewRootCmd(func(ctx context.Context) (*cli.App, error) {
		a, err := cli.Open(ctx, cfg, log)
		app = a
		return a, err
	})

	err := root.ExecuteContext(ctx)
	if app != nil {
		if cerr := app.Close(); cerr != nil {
			log.Warn("close client", "error", cerr)
		}
	}
	stop()
	logger.Flush()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if hint := cli.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(cli.ExitCode(err))
	}
}
