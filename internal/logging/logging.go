package logging

import (
	"io"
	log "log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// Level resolves a flag value to a slog level, falling back to info.
func Level(name string) log.Level {
	if lvl, ok := logLevelMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return log.LevelInfo
}

// Setup installs a tint handler as the process default logger.
func Setup(w io.Writer, level string) *log.Logger {
	logger := log.New(tint.NewHandler(w, &tint.Options{
		Level: Level(level),
	}))
	log.SetDefault(logger)
	return logger
}
