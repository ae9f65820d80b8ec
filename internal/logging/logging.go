// Package logging builds the run logger: console output plus combined and
// error log files.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	CombinedLog = "combined.log"
	ErrorLog    = "error.log"

	timeLayout = "2006-01-02 15:04:05"
)

// Options configure New.
type Options struct {
	// Dir receives the log files; empty disables file logging.
	Dir   string
	Level string
	// Console receives human-readable output; nil means stderr.
	Console io.Writer
}

// New returns a logger and a function that flushes and closes its files.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(console), level),
	}
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		combined, closeCombined, err := zap.Open(filepath.Join(opts.Dir, CombinedLog))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", CombinedLog, err)
		}
		closers = append(closers, closeCombined)

		errs, closeErrs, err := zap.Open(filepath.Join(opts.Dir, ErrorLog))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open %s: %w", ErrorLog, err)
		}
		closers = append(closers, closeErrs)

		cores = append(cores,
			zapcore.NewCore(encoder, combined, level),
			zapcore.NewCore(encoder, errs, zapcore.ErrorLevel),
		)
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() {
		_ = logger.Sync()
		closeAll()
	}, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.NameKey = ""
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	return cfg
}
