// Command steamdispatch drives a Steamworks callback queue from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/steam-dispatch/config"
)

type options struct {
	configPath string
	backend    string
	lib        string
	wasm       string
	logLevel   string
	interval   time.Duration
	appID      uint32
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "steamdispatch",
		Short:         "Pump and inspect the Steamworks callback queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addPersistentFlags(cmd, opts)
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newInfoCommand(opts))
	cmd.AddCommand(newMonitorCommand(opts))
	return cmd
}

func addPersistentFlags(cmd *cobra.Command, opts *options) {
	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringVar(&opts.backend, "backend", "", "native backend (steamworks|wasm|fake)")
	f.StringVar(&opts.lib, "lib", "", "path to libsteam_api")
	f.StringVar(&opts.wasm, "wasm", "", "path to the SDK shim guest module")
	f.Uint32Var(&opts.appID, "app-id", 0, "app id for the restart-through-Steam check")
	f.DurationVar(&opts.interval, "interval", 0, "dispatch tick period")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
}

// loadConfig reads --config and applies the flags the user set on top of it.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("lib") {
		cfg.LibraryPath = opts.lib
	}
	if flags.Changed("wasm") {
		cfg.WasmPath = opts.wasm
	}
	if flags.Changed("app-id") {
		cfg.AppID = opts.appID
	}
	if flags.Changed("interval") {
		cfg.PollInterval = opts.interval
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zc.Build()
}
