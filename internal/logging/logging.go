// Package logging builds the component loggers.
//
// Components take a plain *log.Logger with a "[component] " prefix. This
// package decides where those loggers write: stderr, a size-rotated file,
// both, or nowhere.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log destinations.
type Options struct {
	// File is the rotated log file; empty disables file logging.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Verbose also writes to Stderr.
	Verbose bool

	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Sink is the shared destination of every component logger.
type Sink struct {
	w    io.Writer
	file *lumberjack.Logger
}

// Setup opens the destinations described by opts. Close the sink on exit.
func Setup(opts Options) *Sink {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var writers []io.Writer
	s := &Sink{}
	if opts.File != "" {
		s.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, s.file)
	}
	if opts.Verbose {
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		s.w = io.Discard
	case 1:
		s.w = writers[0]
	default:
		s.w = io.MultiWriter(writers...)
	}
	return s
}

// Logger returns a logger for component, prefixed "[component] ".
func (s *Sink) Logger(component string) *log.Logger {
	return log.New(s.w, "["+component+"] ", log.LstdFlags)
}

// Writer returns the underlying destination.
func (s *Sink) Writer() io.Writer { return s.w }

// Close closes the log file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
