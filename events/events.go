// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package events defines the structured event stream the erasure engine emits.
//
// The engine never writes to a terminal or a log file directly. Every
// observable condition — pass transitions, I/O errors, HPA findings, the
// final per-device summary — is delivered as an Event to a caller-supplied
// Sink. The CLI installs a logging sink; tests install a capturing sink.
package events

import "fmt"

// Level classifies an event's severity.
type Level int

// Severity levels, in ascending order. Sanity is reserved for internal
// consistency failures that indicate a bug rather than an operational error.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
	Fatal
	Sanity
)

// String returns the lower-case name of the level.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	case Sanity:
		return "sanity"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Event is one structured message from the engine.
//
// Device is the device path the event concerns, or empty for run-level
// events. Fields carries optional structured context; it may be nil and
// must be treated as read-only by sinks.
type Event struct {
	Level   Level
	Device  string
	Message string
	Fields  map[string]any
}

// Sink receives engine events. Implementations must be safe for concurrent
// use; workers emit from their own goroutines.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Event)

// Emit implements Sink.
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Emitter wraps a Sink with convenience constructors. A zero Emitter is
// valid and discards everything.
type Emitter struct {
	sink   Sink
	device string
}

// NewEmitter returns an Emitter delivering to sink. A nil sink discards.
func NewEmitter(sink Sink) Emitter {
	if sink == nil {
		sink = Discard
	}
	return Emitter{sink: sink}
}

// WithDevice returns a copy of the Emitter whose events carry the given
// device path.
func (m Emitter) WithDevice(device string) Emitter {
	m.device = device
	return m
}

// Emit builds an event from the level, message and fields, fills in the
// emitter's device, and delivers it to the sink.
func (m Emitter) Emit(level Level, msg string, fields map[string]any) {
	if m.sink == nil {
		return
	}
	m.sink.Emit(Event{Level: level, Device: m.device, Message: msg, Fields: fields})
}

// Debugf emits a Debug-level event.
func (m Emitter) Debugf(format string, args ...any) {
	m.Emit(Debug, fmt.Sprintf(format, args...), nil)
}

// Infof emits an Info-level event.
func (m Emitter) Infof(format string, args ...any) {
	m.Emit(Info, fmt.Sprintf(format, args...), nil)
}

// Noticef emits a Notice-level event.
func (m Emitter) Noticef(format string, args ...any) {
	m.Emit(Notice, fmt.Sprintf(format, args...), nil)
}

// Warnf emits a Warning-level event.
func (m Emitter) Warnf(format string, args ...any) {
	m.Emit(Warning, fmt.Sprintf(format, args...), nil)
}

// Errorf emits an Error-level event.
func (m Emitter) Errorf(format string, args ...any) {
	m.Emit(Error, fmt.Sprintf(format, args...), nil)
}

// Fatalf emits a Fatal-level event. The emitter does not terminate the
// process; that decision belongs to the supervisor.
func (m Emitter) Fatalf(format string, args ...any) {
	m.Emit(Fatal, fmt.Sprintf(format, args...), nil)
}
