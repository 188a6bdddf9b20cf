// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// End-to-end supervisor tests against image files: the classic dodshort
// scenario, idempotence, cancellation, exact-size coverage, and
// multi-device runs.

package wipe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sixafter/scour/device"
	"github.com/sixafter/scour/events"
	"github.com/sixafter/scour/method"
	"github.com/sixafter/scour/prng"
)

// image writes a test image of n bytes filled with fill.
func image(t *testing.T, n int, fill byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = fill
	}
	require.NoError(t, os.WriteFile(path, buf, 0o600))
	return path
}

// newSupervisor builds a test supervisor over image files.
func newSupervisor(t *testing.T, capture *events.Capture, opts ...Option) *Supervisor {
	t.Helper()
	base := []Option{
		WithIOMode(device.IOCached),
		WithNoSignals(true),
		WithBufferSize(128 << 10),
	}
	if capture != nil {
		base = append(base, WithSink(capture))
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return s
}

// Test_Supervisor_DoDShortImage runs the classic scenario: dodshort, one
// round, verify-last, blank, on a 1 MiB image. The image ends up zeroed,
// verification is clean, and the transferred bytes equal the round size.
func Test_Supervisor_DoDShortImage(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	path := image(t, 1<<20, 0xA7)
	capture := &events.Capture{}
	s := newSupervisor(t, capture,
		WithMethod(method.DoDShort),
		WithVerify(method.VerifyLast),
	)

	report, err := s.Run(context.Background(), []string{path})
	is.NoError(err)
	require.Len(t, report.Devices, 1)

	d := report.Devices[0]
	is.Equal(StatusSuccess, d.Status)
	is.Zero(d.VerifyErrors)
	is.Zero(d.PassErrors)
	is.Equal(uint64(5<<20), d.RoundSize)
	is.Equal(d.RoundSize, d.BytesErased)
	is.NotEmpty(d.CertificateID)
	is.Equal(0, report.ExitCode())

	got, err := os.ReadFile(path)
	is.NoError(err)
	is.Equal(make([]byte, 1<<20), got)
}

// Test_Supervisor_ZeroIdempotent verifies running the zero method twice
// yields identical final content.
func Test_Supervisor_ZeroIdempotent(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	path := image(t, 256<<10, 0x5A)

	for i := 0; i < 2; i++ {
		s := newSupervisor(t, nil,
			WithMethod(method.Zero),
			WithVerify(method.VerifyNone),
		)
		report, err := s.Run(context.Background(), []string{path})
		is.NoError(err)
		is.Equal(0, report.ExitCode())
	}

	got, err := os.ReadFile(path)
	is.NoError(err)
	is.Equal(make([]byte, 256<<10), got)
}

// Test_Supervisor_OddSizeImage verifies a device size that is not a
// multiple of the buffer is covered exactly, final partial write
// included.
func Test_Supervisor_OddSizeImage(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	const n = 1000037
	path := image(t, n, 0xEE)
	s := newSupervisor(t, nil,
		WithMethod(method.Zero),
		WithVerify(method.VerifyNone),
		WithNoBlank(true),
		WithBufferSize(4096),
	)

	report, err := s.Run(context.Background(), []string{path})
	is.NoError(err)
	require.Len(t, report.Devices, 1)
	is.Equal(uint64(n), report.Devices[0].BytesErased)

	got, err := os.ReadFile(path)
	is.NoError(err)
	is.Len(got, n)
	is.Equal(make([]byte, n), got)
}

// Test_Supervisor_CancelBeforeStart verifies a cancellation that lands
// before any worker starts leaves the device unmodified.
func Test_Supervisor_CancelBeforeStart(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	const n = 64 << 10
	path := image(t, n, 0x33)
	s := newSupervisor(t, nil, WithMethod(method.Zero))
	s.Cancel()

	report, err := s.Run(context.Background(), []string{path})
	is.NoError(err)
	require.Len(t, report.Devices, 1)
	is.NotEqual(StatusSuccess, report.Devices[0].Status)
	is.Equal(1, report.ExitCode())

	want := make([]byte, n)
	for i := range want {
		want[i] = 0x33
	}
	got, err := os.ReadFile(path)
	is.NoError(err)
	is.Equal(want, got)
}

// Test_Supervisor_RandomVerifyAll verifies keystream re-derivation: a
// random pass read back against a snapshot replay produces zero
// mismatches, for a sample of generators.
func Test_Supervisor_RandomVerifyAll(t *testing.T) {
	t.Parallel()

	for _, alg := range []prng.Algorithm{prng.AESCTR, prng.Xoshiro256, prng.Ascon} {
		alg := alg
		t.Run(alg.String(), func(t *testing.T) {
			t.Parallel()
			is := assert.New(t)

			path := image(t, 192<<10, 0x11)
			s := newSupervisor(t, nil,
				WithMethod(method.Random),
				WithPRNG(alg),
				WithVerify(method.VerifyAll),
			)

			report, err := s.Run(context.Background(), []string{path})
			is.NoError(err)
			require.Len(t, report.Devices, 1)

			d := report.Devices[0]
			is.Equal(StatusSuccess, d.Status)
			is.Zero(d.VerifyErrors)
			// random + verify, blank + verify.
			is.Equal(uint64(4*192<<10), d.BytesErased)
		})
	}
}

// Test_Supervisor_MultipleDevices verifies independent concurrent
// workers: both images wiped, both clean.
func Test_Supervisor_MultipleDevices(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	a := image(t, 128<<10, 0x01)
	b := image(t, 96<<10, 0x02)
	s := newSupervisor(t, nil, WithMethod(method.Zero), WithVerify(method.VerifyLast))

	report, err := s.Run(context.Background(), []string{a, b})
	is.NoError(err)
	require.Len(t, report.Devices, 2)
	for _, d := range report.Devices {
		is.Equal(StatusSuccess, d.Status)
		is.LessOrEqual(d.BytesErased, d.RoundSize)
	}
	is.Equal(0, report.ExitCode())

	for _, p := range []string{a, b} {
		got, err := os.ReadFile(p)
		is.NoError(err)
		is.Equal(make([]byte, len(got)), got)
	}
}

// Test_Supervisor_MissingDeviceIsIsolated verifies a per-device open
// failure disables that device only; the rest of the run proceeds.
func Test_Supervisor_MissingDeviceIsIsolated(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	good := image(t, 64<<10, 0x44)
	bad := filepath.Join(t.TempDir(), "missing.img")
	s := newSupervisor(t, nil, WithMethod(method.Zero), WithVerify(method.VerifyNone))

	report, err := s.Run(context.Background(), []string{bad, good})
	is.NoError(err)
	require.Len(t, report.Devices, 2)
	is.Equal(StatusDisabled, report.Devices[0].Status)
	is.Equal(StatusSuccess, report.Devices[1].Status)
	is.Equal(1, report.ExitCode())

	got, err := os.ReadFile(good)
	is.NoError(err)
	is.Equal(make([]byte, 64<<10), got)
}

// Test_Supervisor_NoTargets verifies a run with nothing to wipe is
// refused.
func Test_Supervisor_NoTargets(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	s := newSupervisor(t, nil)
	_, err := s.Run(context.Background(), nil)
	is.ErrorIs(err, ErrNoDevices)
}

// Test_Supervisor_ExclusionApplies verifies an excluded path is never
// opened even when named explicitly.
func Test_Supervisor_ExclusionApplies(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	const n = 32 << 10
	path := image(t, n, 0x66)
	s := newSupervisor(t, nil, WithMethod(method.Zero), WithExclude(path))

	_, err := s.Run(context.Background(), []string{path})
	is.ErrorIs(err, ErrNoDevices)

	want := make([]byte, n)
	for i := range want {
		want[i] = 0x66
	}
	got, err := os.ReadFile(path)
	is.NoError(err)
	is.Equal(want, got)
}

// Test_Supervisor_EventStream verifies the sink sees the per-device
// summary and final status.
func Test_Supervisor_EventStream(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	path := image(t, 32<<10, 0x10)
	capture := &events.Capture{}
	s := newSupervisor(t, capture, WithMethod(method.Zero), WithVerify(method.VerifyNone))

	_, err := s.Run(context.Background(), []string{path})
	is.NoError(err)

	var sawSummary, sawFinal bool
	for _, e := range capture.Events() {
		if e.Level == events.Notice && e.Device == path {
			sawSummary = true
		}
		if e.Level == events.Notice && e.Device == "" {
			sawFinal = true
		}
	}
	is.True(sawSummary)
	is.True(sawFinal)
}

// Test_Supervisor_GutmannImage verifies the 35-pass method drives a
// small image to its terminal state.
func Test_Supervisor_GutmannImage(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	const n = 16 << 10
	path := image(t, n, 0x99)
	s := newSupervisor(t, nil,
		WithMethod(method.Gutmann),
		WithVerify(method.VerifyNone),
		WithNoBlank(true),
	)

	report, err := s.Run(context.Background(), []string{path})
	is.NoError(err)
	require.Len(t, report.Devices, 1)
	is.Equal(StatusSuccess, report.Devices[0].Status)
	is.Equal(uint64(35*n), report.Devices[0].BytesErased)

	// Final pass is keystream; the image must no longer be the original
	// fill.
	got, err := os.ReadFile(path)
	is.NoError(err)
	orig := bytes.Repeat([]byte{0x99}, n)
	is.False(bytes.Equal(orig, got))
}
