package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveWorkDir returns the directory the wrapped program starts in:
// process.dir when set, otherwise the current working directory.
func ResolveWorkDir(cfg *Config) string {
	if cfg != nil {
		dir := expandHomeDir(cfg.Process.Dir)
		if dir != "" {
			if abs, err := filepath.Abs(dir); err == nil {
				return abs
			}
			return dir
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// LogFilePath returns logging.file with ~ expanded, or "" for stderr.
func LogFilePath(cfg *Config) string {
	if cfg == nil {
		return ""
	}
	return expandHomeDir(cfg.Logging.File)
}

func expandHomeDir(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
