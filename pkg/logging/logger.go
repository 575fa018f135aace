package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
}

// ConsoleLogger returns a text logger writing to stdout.
func ConsoleLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// FileLogger writes JSON lines to stdout and to a size-rotated file.
// The returned closer releases the file sink.
func FileLogger(level logrus.Level, opts FileOptions) (io.Closer, *logrus.Logger, error) {
	if opts.Path == "" {
		return nopCloser{}, ConsoleLogger(level), nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, err
	}
	sink := &lumberjack.Logger{
		Filename: opts.Path,
		MaxSize:  opts.MaxSizeMB,
		MaxAge:   opts.MaxAgeDays,
		Compress: true,
	}

	logger := logrus.New()
	logger.SetOutput(io.MultiWriter(os.Stdout, sink))
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return sink, logger, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
