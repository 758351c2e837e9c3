package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/repl"
	"go-chi-calculator/internal/store/csvfile"
)

// flags holds the global command-line options. Each overrides the matching
// config file key and environment variable when set.
type flags struct {
	ConfigPath  string
	LogLevel    string
	LogFile     string
	HistoryFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	var (
		f   = &flags{}
		cfg *config.Config
	)

	app := &cli.Command{
		Name:      "calc",
		Usage:     "Interactive decimal calculator with undo, redo and persistent history",
		UsageText: "calc [global options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to YAML config file",
				Sources:     cli.EnvVars(config.EnvConfig),
				Value:       "calculator.yaml",
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars(config.EnvLogLevel),
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <log-dir>/calculator.log)",
				Sources:     cli.EnvVars(config.EnvLogFile),
				Destination: &f.LogFile,
			},
			&cli.StringFlag{
				Name:        "history-file",
				Usage:       "path to the CSV history file",
				Sources:     cli.EnvVars(config.EnvHistoryFile),
				Destination: &f.HistoryFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := config.LoadDotEnv(); err != nil {
				return ctx, err
			}

			var err error
			cfg, err = config.Load(f.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if f.LogLevel != "" {
				cfg.LogLevel = f.LogLevel
			}
			if f.LogFile != "" {
				cfg.LogFile = f.LogFile
			}
			if f.HistoryFile != "" {
				cfg.HistoryFile = f.HistoryFile
			}

			// Always log to a file so log lines never mix with the prompt.
			if err := observability.InitFileLogger(cfg.LogFile, cfg.LogLevel); err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			observability.SyncLogger()
			return nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() > 0 {
				return fmt.Errorf("unexpected argument %q. Run 'calc --help' for usage", c.Args().First())
			}
			return run(ctx, *cfg)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := observability.Logger

	store := csvfile.New(cfg.HistoryFile)
	hist := calculator.NewHistory(cfg, store, logger.Named("history"))
	calc := calculator.New(cfg, hist,
		calculator.WithLogger(logger.Named("calculator")),
		calculator.WithObserver(calculator.LoggingObserver{Logger: logger.Named("observer")}),
	)

	if err := calc.Load(ctx); err != nil {
		logger.Warn("could not load history, starting empty",
			zap.String("path", cfg.HistoryFile),
			zap.Error(err),
		)
		fmt.Fprintf(os.Stdout, "Warning: could not load history: %v\n", err)
	}

	logger.Info("calculator started",
		zap.String("history_file", cfg.HistoryFile),
		zap.Int("max_history_size", cfg.MaxHistorySize),
		zap.Int("precision", cfg.Precision),
		zap.Bool("auto_save", cfg.AutoSave),
	)

	// Ctrl-C cancels the pending prompt instead of ending the session.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	err := repl.New(calc, os.Stdin, os.Stdout, logger.Named("repl"), repl.WithInterrupts(interrupts)).Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stdout, "Goodbye!")
		return nil
	}
	return err
}
