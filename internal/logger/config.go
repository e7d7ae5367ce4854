package logger

import (
	"os"
	"strings"
)

// Config is the logger's CLI/environment-facing configuration. Zero value
// is text-to-stderr at info level, matching New's defaults.
type Config struct {
	Level  string // trace|debug|info|warn|error|off
	JSON   bool
	Output string // "stderr" (default), "stdout", or a file path
}

// ParseLevel maps a config string onto a Level, defaulting to LevelInfo for
// anything unrecognized rather than failing the whole CLI invocation.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "silent":
		return LevelOff
	default:
		return LevelInfo
	}
}

// Build constructs a Logger from the config, opening Output if it names a
// file path.
func (c Config) Build() (*Logger, error) {
	level := ParseLevel(c.Level)

	var w = os.Stderr
	switch c.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		return New(f, level), nil
	}
	return New(w, level), nil
}

// EnvironmentConfig builds a Config from YTDLPP_LOG_* environment
// variables, the Go rendering of the teacher's EnvironmentConfig helper.
func EnvironmentConfig() Config {
	return Config{
		Level:  os.Getenv("YTDLPP_LOG_LEVEL"),
		JSON:   os.Getenv("YTDLPP_LOG_JSON") == "1",
		Output: os.Getenv("YTDLPP_LOG_OUTPUT"),
	}
}
