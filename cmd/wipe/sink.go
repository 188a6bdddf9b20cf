// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package wipe

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sixafter/scour/events"
)

// logSink adapts the engine's event stream to a logrus logger. The
// engine itself never logs; this is the CLI's caller-supplied sink.
type logSink struct {
	log *logrus.Logger
}

// newLogSink builds the sink writing to w; verbose lowers the level to
// debug.
func newLogSink(w io.Writer, verbose bool) events.Sink {
	log := logrus.New()
	log.SetOutput(w)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return &logSink{log: log}
}

// Emit implements events.Sink.
func (s *logSink) Emit(e events.Event) {
	entry := logrus.NewEntry(s.log)
	if e.Device != "" {
		entry = entry.WithField("device", e.Device)
	}
	for k, v := range e.Fields {
		entry = entry.WithField(k, v)
	}

	switch e.Level {
	case events.Debug:
		entry.Debug(e.Message)
	case events.Info:
		entry.Info(e.Message)
	case events.Notice:
		entry.Info(e.Message)
	case events.Warning:
		entry.Warn(e.Message)
	case events.Error:
		entry.Error(e.Message)
	case events.Fatal:
		// The supervisor decides process fate; Fatal here is severity,
		// not an exit.
		entry.Error(e.Message)
	case events.Sanity:
		entry.WithField("sanity", true).Error(e.Message)
	}
}
