// Package logging configures the daemon's structured JSON logging. Every line
// carries the service name, the deployment environment and, for subsystem
// loggers, a component attribute, so a single pegd process multiplexing the
// scheduler, the RPC surface and the price feed stays greppable.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// levelEnvVar selects the minimum severity; unset or unknown means info.
const levelEnvVar = "PEGD_LOG_LEVEL"

// Setup installs the process-wide JSON logger on stdout and returns it. The
// minimum level comes from PEGD_LOG_LEVEL (debug, info, warn, error). The
// standard library logger is bridged so third-party packages logging through
// it emit the same shape.
func Setup(service, env string) *slog.Logger {
	return setup(os.Stdout, service, env, levelFromEnv(os.Getenv(levelEnvVar)))
}

func setup(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler := newHandler(w, level)

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// Component derives a subsystem logger from the process logger. The component
// name ends up on every line, e.g. component=scheduler.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With(slog.String("component", name))
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})
}

func levelFromEnv(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
