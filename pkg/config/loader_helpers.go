package config

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// loadAndMerge loads a YAML file and merges it into the config.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Booleans only apply when the key is
// present in raw, so a file cannot silently reset a true default.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if override.Bridge.Bind != "" {
		base.Bridge.Bind = override.Bridge.Bind
	}
	if override.Bridge.Path != "" {
		base.Bridge.Path = override.Bridge.Path
	}
	if fieldSet(raw, "bridge", "allowed_origins") {
		base.Bridge.AllowedOrigins = append([]string(nil), override.Bridge.AllowedOrigins...)
	}
	if override.Bridge.MaxMessageBytes != 0 {
		base.Bridge.MaxMessageBytes = override.Bridge.MaxMessageBytes
	}
	if fieldSet(raw, "bridge", "ping_interval") {
		base.Bridge.PingInterval = override.Bridge.PingInterval
	}
	if fieldSet(raw, "bridge", "send_initial_frame") {
		base.Bridge.SendInitialFrame = override.Bridge.SendInitialFrame
	}

	if override.Process.Command != "" {
		base.Process.Command = override.Process.Command
	}
	if fieldSet(raw, "process", "args") {
		base.Process.Args = append([]string(nil), override.Process.Args...)
	}
	if override.Process.Dir != "" {
		base.Process.Dir = override.Process.Dir
	}
	if len(override.Process.Env) > 0 {
		base.Process.Env = append(base.Process.Env, override.Process.Env...)
	}
	if override.Process.Mode != "" {
		base.Process.Mode = override.Process.Mode
	}
	if fieldSet(raw, "process", "shell") {
		base.Process.Shell = override.Process.Shell
	}

	if override.Screen.Rows != 0 {
		base.Screen.Rows = override.Screen.Rows
	}
	if override.Screen.Cols != 0 {
		base.Screen.Cols = override.Screen.Cols
	}
	if override.Screen.FallbackRows != 0 {
		base.Screen.FallbackRows = override.Screen.FallbackRows
	}
	if override.Screen.FallbackCols != 0 {
		base.Screen.FallbackCols = override.Screen.FallbackCols
	}

	if override.Markup.FillGlyph != "" {
		base.Markup.FillGlyph = override.Markup.FillGlyph
	}
	if fieldSet(raw, "markup", "close_before_override") {
		base.Markup.CloseBeforeOverride = override.Markup.CloseBeforeOverride
	}
	if len(override.Markup.Palette) > 0 {
		if base.Markup.Palette == nil {
			base.Markup.Palette = make(map[string]string, len(override.Markup.Palette))
		}
		for name, hex := range override.Markup.Palette {
			base.Markup.Palette[name] = hex
		}
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if fieldSet(raw, "telemetry", "metrics") {
		base.Telemetry.Metrics = override.Telemetry.Metrics
	}
	if fieldSet(raw, "telemetry", "tracing") {
		base.Telemetry.Tracing = override.Telemetry.Tracing
	}
}

func fieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}
