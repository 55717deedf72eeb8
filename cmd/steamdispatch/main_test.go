package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/steam-dispatch/config"
	"github.com/wippyai/steam-dispatch/errors"
)

func parse(t *testing.T, args ...string) (*cobra.Command, *options) {
	t.Helper()
	opts := &options{}
	root := &cobra.Command{Use: "steamdispatch"}
	addPersistentFlags(root, opts)
	sub := newInfoCommand(opts)
	root.AddCommand(sub)
	if err := sub.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return sub, opts
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steam.yaml")
	yml := "backend: fake\napp_id: 10\npoll_interval: 50ms\nlog_level: warn\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd, opts := parse(t, "--config", path, "--interval", "5ms", "--app-id", "570")
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Backend != config.BackendFake {
		t.Errorf("Backend = %q, want fake from file", cfg.Backend)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn from file", cfg.LogLevel)
	}
	if cfg.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want flag value", cfg.PollInterval)
	}
	if cfg.AppID != 570 {
		t.Errorf("AppID = %d, want flag value", cfg.AppID)
	}
}

func TestLoadConfig_UnsetFlagsKeepDefaults(t *testing.T) {
	cmd, opts := parse(t)
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	def := config.Default()
	if cfg.Backend != def.Backend || cfg.PollInterval != def.PollInterval || cfg.LogLevel != def.LogLevel {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind errors.Kind
	}{
		{"unknown backend", []string{"--backend", "nope"}, errors.KindInvalidInput},
		{"wasm without path", []string{"--backend", "wasm"}, errors.KindInvalidInput},
		{"bad level", []string{"--log-level", "loud"}, errors.KindInvalidInput},
		{"missing file", []string{"--config", "/nonexistent/steam.yaml"}, errors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, opts := parse(t, tt.args...)
			_, err := loadConfig(cmd, opts)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestInfoCommand_Fake(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{
		"info", "--backend", "fake", "--app-id", "570",
		"--interval", "5ms", "--log-level", "error", "--ticket",
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"570",
		"76561197960287930",
		"english",
		"default",
		"1400000001000000",
		"DlcInstalled_t",
		"phone verified",
		"SteamAPICallCompleted_t",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunPump_WaitsForCancellation(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendFake
	cfg.PollInterval = 5 * time.Millisecond

	const wait = 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	start := time.Now()
	if err := runPump(ctx, cfg, zap.NewNop(), 0, 0); err != nil {
		t.Fatalf("runPump: %v", err)
	}
	if elapsed := time.Since(start); elapsed < wait/2 {
		t.Errorf("runPump returned after %v, before the context ended", elapsed)
	}
}
