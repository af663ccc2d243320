// Package logging holds the process-wide slog logger, its rotating file
// sink and the HTTP request logging middleware.
package logging

import (
	"log/slog"
	"os"
)

type LoggingService struct {
	Logger  *slog.Logger
	rotator *RotatingLogger
}

// Close releases the rotating file, if any.
func (s *LoggingService) Close() error {
	if s == nil || s.rotator == nil {
		return nil
	}
	return s.rotator.Close()
}

var DefaultLoggingService *LoggingService

// InitLogger installs the global logger. When the log directory cannot be
// used the service keeps logging to the console only.
func InitLogger(opts Options) *LoggingService {
	level := GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose)

	var rl *RotatingLogger
	if opts.Dir != "" {
		size := opts.MaxFileSize
		if size == 0 {
			size = defaultMaxFileSize
		}
		weeks := opts.RetentionWeeks
		if weeks <= 0 {
			weeks = 4
		}
		var err error
		rl, err = NewRotatingLogger(opts.Dir, weeks, size)
		if err != nil {
			slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("File logging disabled", "dir", opts.Dir, "error", err)
		}
	}

	DefaultLoggingService = &LoggingService{
		Logger:  newLogger(stdout, rl, level),
		rotator: rl,
	}
	slog.SetDefault(DefaultLoggingService.Logger)
	return DefaultLoggingService
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or a console fallback before InitLogger.
func Logger() *slog.Logger { return logger() }

func Info(msg string, args ...any)  { logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { logger().Warn(msg, args...) }
func Error(msg string, args ...any) { logger().Error(msg, args...) }
func Debug(msg string, args ...any) { logger().Debug(msg, args...) }
