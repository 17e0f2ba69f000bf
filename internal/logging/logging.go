// Package logging builds the bastion's process-wide structured logging
// sink: leveled, rotating-file output, optionally tee'd to stdout.
package logging

/*
 * logging.go
 * Structured, rotating-file logging sink
 */

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is the logrus level name ("debug", "info", "warn", "error").
	Level string
	// File is the rotating log file path. Empty disables file output.
	File string
	// AlsoStdout tees output to stdout in addition to File.
	AlsoStdout bool
}

// New builds a *logrus.Logger per Options. Components take the logger (or
// a field-scoped view of it) as a constructor argument rather than
// reaching for a package-level global.
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(opts.Level)
	if nil != err {
		return nil, fmt.Errorf("parsing log level %q: %w", opts.Level, err)
	}
	log.SetLevel(level)

	var writers []io.Writer
	if opts.AlsoStdout || "" == opts.File {
		writers = append(writers, os.Stdout)
	}
	if "" != opts.File {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			Compress:   false,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, nil
}
