package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/sidestacker-server/internal/app"
	"github.com/vovakirdan/sidestacker-server/internal/config"
	applog "github.com/vovakirdan/sidestacker-server/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// rootOptions holds what the command line sets on top of the loaded config.
type rootOptions struct {
	configPath string
	overrides  config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "sidestacker-server",
		Short:         "Authoritative side-stacker match server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := applog.New("info", "")
			cfg, path, err := config.Load(bootLogger, opts.configPath)
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := applog.New(cfg.LogLevel, cfg.LogFile)
			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().
				Str("addr", cfg.Addr).
				Str("config", path).
				Int("rows", cfg.BoardRows).
				Int("cols", cfg.BoardCols).
				Msg("starting sidestacker server")
			if err := application.Run(cmd.Context()); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func bindFlags(cmd *cobra.Command, opts *rootOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	flags.StringVar(&opts.overrides.Addr, "addr", "", "HTTP listen address")
	flags.DurationVar(&opts.overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.overrides.LogFile, "log-file", "", "also write logs to this rotating file")
	flags.StringVar(&opts.overrides.DatabasePath, "db", "", "SQLite database path")
	flags.BoolVar(&opts.overrides.JWTRequired, "jwt-required", false, "reject websocket connections without a token")
	flags.IntVar(&opts.overrides.BoardRows, "rows", 0, "board rows")
	flags.IntVar(&opts.overrides.BoardCols, "cols", 0, "board columns")
	flags.DurationVar(&opts.overrides.EndGracePeriod, "end-grace", 0, "delay between a finished match and its end signal (0 ends at once)")
	flags.IntVar(&opts.overrides.RateLimitPerMinute, "rate-limit", 0, "inbound messages allowed per connection per minute (0 disables)")
	flags.StringVar(&opts.overrides.DefaultEncoding, "encoding", "", "default wire encoding (events, update)")
}

// apply layers the flags over cfg. UpdateFrom skips zero values, so flags
// whose zero value means something are copied when set explicitly.
func (o *rootOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	cfg.UpdateFrom(o.overrides)

	flags := cmd.Flags()
	if flags.Changed("end-grace") {
		cfg.EndGracePeriod = o.overrides.EndGracePeriod
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimitPerMinute = o.overrides.RateLimitPerMinute
	}
	if flags.Changed("jwt-required") {
		cfg.JWTRequired = o.overrides.JWTRequired
	}
}
