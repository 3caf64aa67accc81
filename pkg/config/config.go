package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
	"github.com/odvcencio/termmarkup/pkg/markup"
)

const (
	// ProcessModePTY runs the program on a pseudo terminal.
	ProcessModePTY = "pty"
	// ProcessModePipe runs the program with plain stdin/stdout pipes.
	ProcessModePipe = "pipe"

	DefaultBind            = "localhost:8037"
	DefaultPath            = "/"
	DefaultCommand         = "./df_linux/df"
	DefaultProcessMode     = ProcessModePTY
	DefaultFallbackRows    = 25
	DefaultFallbackCols    = 80
	DefaultMaxMessageBytes = 64 << 10
	DefaultPingInterval    = 30 * time.Second
	DefaultLogLevel        = "info"
)

// Config holds all bridge configuration
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Process   ProcessConfig   `yaml:"process"`
	Screen    ScreenConfig    `yaml:"screen"`
	Markup    MarkupConfig    `yaml:"markup"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BridgeConfig configures the websocket endpoint.
type BridgeConfig struct {
	Bind             string        `yaml:"bind"`
	Path             string        `yaml:"path"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	MaxMessageBytes  int64         `yaml:"max_message_bytes"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	SendInitialFrame bool          `yaml:"send_initial_frame"`
}

// ProcessConfig describes the wrapped console program.
type ProcessConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	Env     []string `yaml:"env"`
	Mode    string   `yaml:"mode"`
	Shell   bool     `yaml:"shell"`
}

// ScreenConfig sizes the virtual screen. Rows and Cols pin a fixed size and
// disable host probing; the fallback applies when the host is not a terminal.
type ScreenConfig struct {
	Rows         int `yaml:"rows"`
	Cols         int `yaml:"cols"`
	FallbackRows int `yaml:"fallback_rows"`
	FallbackCols int `yaml:"fallback_cols"`
}

// MarkupConfig tunes the encoder.
type MarkupConfig struct {
	FillGlyph           string            `yaml:"fill_glyph"`
	CloseBeforeOverride bool              `yaml:"close_before_override"`
	Palette             map[string]string `yaml:"palette"`
}

// LoggingConfig controls the structured logger. An empty File means stderr.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TelemetryConfig toggles metrics and tracing.
type TelemetryConfig struct {
	Metrics bool `yaml:"metrics"`
	Tracing bool `yaml:"tracing"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Bind:            DefaultBind,
			Path:            DefaultPath,
			MaxMessageBytes: DefaultMaxMessageBytes,
			PingInterval:    DefaultPingInterval,
		},
		Process: ProcessConfig{
			Command: DefaultCommand,
			Mode:    DefaultProcessMode,
			Shell:   true,
		},
		Screen: ScreenConfig{
			FallbackRows: DefaultFallbackRows,
			FallbackCols: DefaultFallbackCols,
		},
		Markup: MarkupConfig{
			FillGlyph: markup.DefaultFillGlyph,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
		Telemetry: TelemetryConfig{
			Metrics: true,
		},
	}
}

// Load loads configuration from default locations with proper precedence
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	// Load user config (~/.termmarkup/config.yaml)
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".termmarkup", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, wrapLoadError(err, "loading user config", userConfigPath)
		}
	}

	// Load project config (./.termmarkup/config.yaml)
	projectConfigPath := filepath.Join(".", ".termmarkup", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, wrapLoadError(err, "loading project config", projectConfigPath)
	}

	applyEnvOverrides(cfg, configEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	if err := loadAndMerge(cfg, expandHomeDir(path)); err != nil {
		return nil, wrapLoadError(err, "loading config", path)
	}

	applyEnvOverrides(cfg, configEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func wrapLoadError(err error, message, path string) error {
	if apperrors.IsCode(err, apperrors.ErrCodeConfigParse) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeConfigLoad, message).WithContext("path", path)
}

// applyEnvOverrides applies environment variable overrides. Values from
// ~/.termmarkup/config.env apply only when the variable is not set.
func applyEnvOverrides(cfg *Config, configEnv map[string]string) {
	getenv := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(configEnv[key])
	}

	if v := getenv("TERMMARKUP_BIND"); v != "" {
		cfg.Bridge.Bind = v
	}
	if v := getenv("TERMMARKUP_PATH"); v != "" {
		cfg.Bridge.Path = v
	}
	if v := getenv("TERMMARKUP_ALLOWED_ORIGINS"); v != "" {
		cfg.Bridge.AllowedOrigins = splitCommaList(v)
	}
	if v := getenv("TERMMARKUP_COMMAND"); v != "" {
		cfg.Process.Command = v
	}
	if v := getenv("TERMMARKUP_PROCESS_MODE"); v != "" {
		cfg.Process.Mode = v
	}
	if v := getenv("TERMMARKUP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("TERMMARKUP_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if val, ok := parseBool(getenv("TERMMARKUP_METRICS")); ok {
		cfg.Telemetry.Metrics = val
	}
	if val, ok := parseBool(getenv("TERMMARKUP_TRACING")); ok {
		cfg.Telemetry.Tracing = val
	}
	if n, err := strconv.Atoi(getenv("TERMMARKUP_ROWS")); err == nil && n > 0 {
		cfg.Screen.Rows = n
	}
	if n, err := strconv.Atoi(getenv("TERMMARKUP_COLS")); err == nil && n > 0 {
		cfg.Screen.Cols = n
	}
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseBool(val string) (bool, bool) {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func isLoopbackBindAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	switch strings.ToLower(host) {
	case "localhost":
		return true
	case "0.0.0.0", "::":
		return false
	default:
		ip := net.ParseIP(host)
		if ip == nil {
			return false
		}
		return ip.IsLoopback()
	}
}

// ProcessMode returns the normalized process mode.
func (c *Config) ProcessMode() string {
	if c == nil {
		return DefaultProcessMode
	}
	return normalizeMode(c.Process.Mode, DefaultProcessMode)
}

func normalizeMode(mode, fallback string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return fallback
	}
	return mode
}

// FixedSize reports the pinned screen size, if any.
func (c *Config) FixedSize() (rows, cols int, ok bool) {
	if c.Screen.Rows > 0 && c.Screen.Cols > 0 {
		return c.Screen.Rows, c.Screen.Cols, true
	}
	return 0, 0, false
}

// Palette builds the encoder palette with the configured overrides.
func (c *Config) Palette() (*markup.Palette, error) {
	p, err := markup.NewPalette(c.Markup.Palette)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid markup.palette")
	}
	return p, nil
}

// Encoder builds the markup encoder described by the markup section.
func (c *Config) Encoder() (*markup.Encoder, error) {
	p, err := c.Palette()
	if err != nil {
		return nil, err
	}
	return markup.NewEncoder(p,
		markup.WithFillGlyph(c.Markup.FillGlyph),
		markup.WithCloseBeforeOverride(c.Markup.CloseBeforeOverride),
	), nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return apperrors.Newf(apperrors.ErrCodeConfigInvalid, format, args...).WithContext("field", field)
	}

	if strings.TrimSpace(c.Bridge.Bind) == "" {
		return invalid("bridge.bind", "bind address is required")
	}
	if _, _, err := net.SplitHostPort(c.Bridge.Bind); err != nil {
		return invalid("bridge.bind", "invalid bind address %q: %v", c.Bridge.Bind, err)
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		return invalid("bridge.path", "path %q must start with /", c.Bridge.Path)
	}
	if c.Bridge.Path == "/healthz" || c.Bridge.Path == "/metrics" {
		return invalid("bridge.path", "path %q is reserved", c.Bridge.Path)
	}
	if c.Bridge.MaxMessageBytes <= 0 {
		return invalid("bridge.max_message_bytes", "max message size must be positive, got %d", c.Bridge.MaxMessageBytes)
	}
	if c.Bridge.PingInterval < 0 {
		return invalid("bridge.ping_interval", "ping interval must not be negative")
	}

	if strings.TrimSpace(c.Process.Command) == "" {
		return invalid("process.command", "command is required")
	}
	switch c.ProcessMode() {
	case ProcessModePTY, ProcessModePipe:
	default:
		return invalid("process.mode", "invalid process mode: %s (must be pty or pipe)", c.Process.Mode)
	}

	if c.Screen.Rows < 0 || c.Screen.Cols < 0 {
		return invalid("screen", "screen size must not be negative")
	}
	if (c.Screen.Rows > 0) != (c.Screen.Cols > 0) {
		return invalid("screen", "screen.rows and screen.cols must be set together")
	}
	if c.Screen.FallbackRows <= 0 || c.Screen.FallbackCols <= 0 {
		return invalid("screen", "fallback size must be positive, got %dx%d", c.Screen.FallbackRows, c.Screen.FallbackCols)
	}

	if c.Markup.FillGlyph == "" {
		return invalid("markup.fill_glyph", "fill glyph is required")
	}
	if _, err := c.Palette(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", "invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ValidationWarnings returns non-fatal configuration concerns.
func (c *Config) ValidationWarnings() []string {
	var warnings []string
	if !isLoopbackBindAddress(c.Bridge.Bind) && len(c.Bridge.AllowedOrigins) == 0 {
		warnings = append(warnings, "bridge.bind is not loopback and bridge.allowed_origins is empty; any origin may connect")
	}
	if c.ProcessMode() == ProcessModePipe && c.Screen.Rows == 0 {
		warnings = append(warnings, "pipe mode cannot tell the program about size changes; consider pinning screen.rows and screen.cols")
	}
	return warnings
}

func loadConfigEnvVars() map[string]string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil
	}

	path := filepath.Join(home, ".termmarkup", "config.env")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	vars := make(map[string]string)
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		line = strings.TrimSpace(line)
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		vars[key] = value
	}
	return vars
}
