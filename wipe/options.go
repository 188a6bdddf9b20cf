// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package wipe implements the concurrent erasure engine: one worker per
// selected device executing a pass schedule, and the supervisor that
// spawns workers, dispatches signals, and aggregates results.
package wipe

import (
	"errors"
	"fmt"
	"time"

	"github.com/sixafter/scour/device"
	"github.com/sixafter/scour/events"
	"github.com/sixafter/scour/method"
	"github.com/sixafter/scour/prng"
)

// MaxExclusions bounds the exclusion list.
const MaxExclusions = 32

// DefaultJoinTimeout is the minimum time the supervisor waits for a
// worker after cancellation before recording it as abandoned.
const DefaultJoinTimeout = 10 * time.Second

// SyncMode selects the data-sync policy applied during passes.
type SyncMode int

const (
	// SyncAtEnd issues exactly one data sync when a pass completes.
	SyncAtEnd SyncMode = iota

	// SyncEveryN issues a data sync every N block writes, plus one at
	// pass completion.
	SyncEveryN

	// SyncEveryBlock opens the device O_SYNC.
	SyncEveryBlock

	// SyncNever omits syncs entirely.
	SyncNever
)

var (
	// ErrTooManyExclusions is returned when the exclusion list exceeds
	// MaxExclusions.
	ErrTooManyExclusions = errors.New("wipe: too many exclusions")

	// ErrNoDevices is returned when nothing is selectable.
	ErrNoDevices = errors.New("wipe: no selectable devices")

	// ErrNotRoot is returned when block devices are targeted without
	// privileges.
	ErrNotRoot = errors.New("wipe: block devices require root")
)

// Options is the engine configuration. It is immutable once the wipe
// starts.
type Options struct {
	// Method is the erasure method.
	Method method.Method

	// PRNG selects the keystream generator for random passes.
	PRNG prng.Algorithm

	// Entropy selects the seed source.
	Entropy prng.Entropy

	// Rounds repeats the method body; at least 1.
	Rounds int

	// Verify is the read-back policy.
	Verify method.VerifyMode

	// NoBlank suppresses the trailing zero pass.
	NoBlank bool

	// SyncMode and SyncEvery control data-sync policy; SyncEvery is the
	// N of SyncEveryN.
	SyncMode  SyncMode
	SyncEvery int

	// IOMode controls direct versus cached device access.
	IOMode device.IOMode

	// BufferSize is the I/O buffer size in bytes; it is trimmed to the
	// alignment the pass requires.
	BufferSize int

	// Exclude lists device paths never to touch; at most MaxExclusions.
	Exclude []string

	// NoUSB drops USB bridges from enumeration.
	NoUSB bool

	// Autonuke wipes every enumerated candidate without selection.
	Autonuke bool

	// AutoPoweroff requests a poweroff after completion; honored by the
	// CLI, recorded here so the report reflects it.
	AutoPoweroff bool

	// NoWait, NoSignals, Quiet, Verbose mirror the CLI toggles. Quiet
	// anonymizes serial numbers in events and results.
	NoWait    bool
	NoSignals bool
	Quiet     bool
	Verbose   bool

	// JoinTimeout is the post-cancellation join deadline; floored at
	// DefaultJoinTimeout.
	JoinTimeout time.Duration

	// Sink receives engine events; nil discards.
	Sink events.Sink
}

// Option mutates Options, Function Options pattern.
type Option func(*Options)

// DefaultOptions returns the engine defaults: one round of dodshort,
// AES-CTR keystream, verify-last, trailing blank, sync at pass end,
// auto I/O.
func DefaultOptions() Options {
	return Options{
		Method:      method.DoDShort,
		PRNG:        prng.AESCTR,
		Entropy:     prng.EntropyChaCha,
		Rounds:      1,
		Verify:      method.VerifyLast,
		SyncMode:    SyncAtEnd,
		IOMode:      device.IOAuto,
		BufferSize:  1 << 20,
		JoinTimeout: DefaultJoinTimeout,
		Sink:        events.Discard,
	}
}

// WithMethod sets the erasure method.
func WithMethod(m method.Method) Option {
	return func(o *Options) { o.Method = m }
}

// WithPRNG sets the keystream generator.
func WithPRNG(a prng.Algorithm) Option {
	return func(o *Options) { o.PRNG = a }
}

// WithEntropy sets the seed source.
func WithEntropy(e prng.Entropy) Option {
	return func(o *Options) { o.Entropy = e }
}

// WithRounds sets the round count.
func WithRounds(n int) Option {
	return func(o *Options) { o.Rounds = n }
}

// WithVerify sets the read-back policy.
func WithVerify(v method.VerifyMode) Option {
	return func(o *Options) { o.Verify = v }
}

// WithNoBlank suppresses the trailing zero pass.
func WithNoBlank(noblank bool) Option {
	return func(o *Options) { o.NoBlank = noblank }
}

// WithSync maps the numeric sync option: 0 syncs at pass end, N ≥ 1
// syncs every N block writes.
func WithSync(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			o.SyncMode = SyncAtEnd
			o.SyncEvery = 0
			return
		}
		o.SyncMode = SyncEveryN
		o.SyncEvery = n
	}
}

// WithSyncMode sets the sync policy directly.
func WithSyncMode(m SyncMode) Option {
	return func(o *Options) { o.SyncMode = m }
}

// WithIOMode sets direct versus cached access.
func WithIOMode(m device.IOMode) Option {
	return func(o *Options) { o.IOMode = m }
}

// WithBufferSize sets the I/O buffer size.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.BufferSize = n }
}

// WithExclude sets the exclusion list.
func WithExclude(paths ...string) Option {
	return func(o *Options) { o.Exclude = paths }
}

// WithNoUSB drops USB bridges.
func WithNoUSB(v bool) Option {
	return func(o *Options) { o.NoUSB = v }
}

// WithAutonuke skips selection and wipes every candidate.
func WithAutonuke(v bool) Option {
	return func(o *Options) { o.Autonuke = v }
}

// WithQuiet anonymizes serial numbers.
func WithQuiet(v bool) Option {
	return func(o *Options) { o.Quiet = v }
}

// WithNoSignals disables signal handling.
func WithNoSignals(v bool) Option {
	return func(o *Options) { o.NoSignals = v }
}

// WithJoinTimeout sets the post-cancellation join deadline.
func WithJoinTimeout(d time.Duration) Option {
	return func(o *Options) { o.JoinTimeout = d }
}

// WithSink installs the event sink.
func WithSink(s events.Sink) Option {
	return func(o *Options) { o.Sink = s }
}

// validate rejects option combinations the engine cannot honor.
func (o *Options) validate() error {
	if o.Rounds < 1 {
		return method.ErrRounds
	}
	if len(o.Exclude) > MaxExclusions {
		return fmt.Errorf("%w: %d > %d", ErrTooManyExclusions, len(o.Exclude), MaxExclusions)
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1 << 20
	}
	if o.JoinTimeout < DefaultJoinTimeout {
		o.JoinTimeout = DefaultJoinTimeout
	}
	if o.Sink == nil {
		o.Sink = events.Discard
	}
	return nil
}
