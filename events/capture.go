// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package events

import "sync"

// Capture is a Sink that records every event it receives; the tests use it
// to inspect what a run emitted.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (c *Capture) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of all recorded events in arrival order.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// AtLeast returns the recorded events at or above the given level, leaving
// out Sanity events.
func (c *Capture) AtLeast(level Level) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Level >= level && e.Level != Sanity {
			out = append(out, e)
		}
	}
	return out
}
