package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fastygo/boatclosers/internal/app"
	"github.com/fastygo/boatclosers/internal/config"
	"github.com/fastygo/boatclosers/internal/services/lifecycle"
	"github.com/fastygo/boatclosers/pkg/logger"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "boatclosers",
		Usage: "Walk a private vessel sale from offer to closing",
		Description: `Works on the same saved transaction as the HTTP service.

Every command loads the saved record, applies one change and saves it again.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{
			startCommand(),
			showCommand(),
			getCommand(),
			setCommand(),
			stepCommand(),
			readinessCommand(),
			closeCommand(),
			resetCommand(),
			offerCommands(),
			depositCommands(),
			escrowCommands(),
			docsCommands(),
			tokenCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Store driver: bolt, redis or memory",
				EnvVars: []string{"STORE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "BoltDB file holding the saved transaction",
				EnvVars: []string{"BOLTDB_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level written to stderr",
				Value:   "error",
				EnvVars: []string{"BOATCLOSERS_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}

// withApp builds the application for one command and releases it afterwards.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if v := c.String("store"); v != "" {
		cfg.Store.Driver = v
	}
	if v := c.String("db"); v != "" {
		cfg.Store.Path = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    c.String("log-level"),
		Encoding: "console",
		Output:   "stderr",
	})
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(5*time.Second, zapLogger)
	ctx, cancel := manager.Listen(c.Context)
	defer cancel()

	a, err := app.New(ctx, cfg, zapLogger, manager)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return err
	}
	runErr := fn(ctx, a)
	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Warn("shutdown", zap.Error(err))
	}
	return runErr
}

// output writes v as indented JSON when --json is set and calls text otherwise.
func output(c *cli.Context, v interface{}, text func(w io.Writer)) error {
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	if c.Bool("json") || text == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
