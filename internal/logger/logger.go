package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the configuration options for the logger
type Config struct {
	// Level sets the minimum enabled logging level. Valid levels are
	// "debug", "info", "warn", and "error".
	Level string

	// File enables an additional rotated log file when set.
	File string

	// MaxSizeMB is the maximum size in megabytes of the log file before it gets
	// rotated. It defaults to 10 megabytes.
	MaxSizeMB int

	// MaxBackups is the maximum number of old log files to retain. The default is 5.
	MaxBackups int

	// Colorize enables human readable colored console output.
	Colorize bool

	// Out overrides the console writer, stderr by default.
	Out io.Writer
}

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
)

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Init replaces the global logger based on the provided Config.
func Init(config Config) zerolog.Logger {
	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = 10
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 5
	}
	out := config.Out
	if out == nil {
		out = os.Stderr
	}

	var writers []io.Writer
	if config.Colorize {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	} else {
		writers = append(writers, out)
	}
	if config.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB, // megabytes
			MaxBackups: config.MaxBackups,
			MaxAge:     28, // days
		})
	}

	level := ParseLevel(config.Level)
	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	var l zerolog.Logger
	if level == zerolog.DebugLevel {
		l = ctx.Caller().Logger()
	} else {
		l = ctx.Logger()
	}

	mu.Lock()
	log = l
	mu.Unlock()
	return l
}

// Get returns the global logger.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	l := Get()
	return l.With().Str("component", name).Logger()
}
