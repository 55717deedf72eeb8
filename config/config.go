// Package config loads steam-dispatch settings from YAML.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/steam-dispatch/bridge"
	"github.com/wippyai/steam-dispatch/dispatch"
	"github.com/wippyai/steam-dispatch/errors"
	"github.com/wippyai/steam-dispatch/native/steamworks"
	"github.com/wippyai/steam-dispatch/schema"
)

// Backends.
const (
	BackendSteamworks = "steamworks"
	BackendWasm       = "wasm"
	BackendFake       = "fake"
)

// Config holds the settings of a steam-dispatch process. Zero values take
// the defaults listed on each field.
type Config struct {
	// Backend selects the native SDK: steamworks, wasm or fake. Default steamworks.
	Backend string `yaml:"backend"`

	// LibraryPath is the libsteam_api to load. Default steamworks.DefaultLibrary().
	LibraryPath string `yaml:"library_path"`

	// WasmPath is the guest module for the wasm backend.
	WasmPath string `yaml:"wasm_path"`

	// LogLevel is a zap level name. Default info.
	LogLevel string `yaml:"log_level"`

	// PollInterval is the dispatch tick period. Default 100ms.
	PollInterval time.Duration `yaml:"poll_interval"`

	// CallTimeout bounds waits on call results. 0 waits forever.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// AppID enables the restart-through-Steam check.
	AppID uint32 `yaml:"app_id"`

	// Pack is the callback struct packing, 4 or 8. Default per platform.
	Pack uint32 `yaml:"pack"`

	// ManualPump disables the dispatch goroutine.
	ManualPump bool `yaml:"manual_pump"`

	// Files seeds cloud storage for the fake backend.
	Files map[string]string `yaml:"files"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Path(path).
			Cause(err).
			Detail("read config").
			Build()
	}
	c, err := Parse(data)
	if err != nil {
		var se *errors.Error
		if stderrors.As(err, &se) && len(se.Path) == 0 {
			se.Path = []string{path}
		}
		return nil, err
	}
	return c, nil
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse YAML")
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSteamworks
	}
	if c.LibraryPath == "" {
		c.LibraryPath = steamworks.DefaultLibrary()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PollInterval == 0 {
		c.PollInterval = dispatch.DefaultInterval
	}
	if c.Pack == 0 {
		c.Pack = schema.DefaultPack()
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSteamworks, BackendFake:
	case BackendWasm:
		if c.WasmPath == "" {
			return invalid("wasm_path", "required for the wasm backend")
		}
	default:
		return invalid("backend", "unknown backend %q", c.Backend)
	}
	if c.Pack != schema.PackSmall && c.Pack != schema.PackLarge {
		return invalid("pack", "must be %d or %d, got %d", schema.PackSmall, schema.PackLarge, c.Pack)
	}
	if c.PollInterval < 0 {
		return invalid("poll_interval", "must not be negative")
	}
	if c.CallTimeout < 0 {
		return invalid("call_timeout", "must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", "%v", err)
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// BridgeConfig builds the bridge settings.
func (c *Config) BridgeConfig(log *zap.Logger) *bridge.Config {
	return &bridge.Config{
		Logger:       log,
		PollInterval: c.PollInterval,
		CallTimeout:  c.CallTimeout,
		AppID:        c.AppID,
		Pack:         c.Pack,
		ManualPump:   c.ManualPump,
	}
}

// FileBytes returns Files as byte slices.
func (c *Config) FileBytes() map[string][]byte {
	if len(c.Files) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(c.Files))
	for name, data := range c.Files {
		out[name] = []byte(data)
	}
	return out
}

func invalid(field, format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(field).
		Detail(format, args...).
		Build()
}
