package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler and the attributes stamped on every record.
type Config struct {
	Service string
	Version string
	Env     string
	Level   string // debug, info, warn or error
	Format  string // json or text

	// MaskPhones replaces all but the last four digits of "phone" attributes.
	MaskPhones bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds the process logger and installs it as slog's default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     ParseLevel(cfg.Level),
	}
	if cfg.MaskPhones {
		opts.ReplaceAttr = maskPhoneAttr
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(h).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to its slog.Level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	var lvl slog.Level
	if name == "warning" {
		name = "warn"
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func maskPhoneAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key != "phone" || a.Value.Kind() != slog.KindString {
		return a
	}
	return slog.String(a.Key, MaskPhone(a.Value.String()))
}

// MaskPhone keeps the last four characters of s.
func MaskPhone(s string) string {
	const keep = 4
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}
