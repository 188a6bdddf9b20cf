// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package wipe

import (
	"time"

	"github.com/google/uuid"
	"github.com/sixafter/nanoid"

	"github.com/sixafter/scour/device"
)

// PassStatus is a pass's final state.
type PassStatus string

const (
	PassOK      PassStatus = "ok"
	PassPartial PassStatus = "partial"
	PassFailed  PassStatus = "failed"
)

// PassOutcome records one executed pass. Mismatches > 0 implies a
// non-ok status; BytesVerified never exceeds the pass's write size.
type PassOutcome struct {
	Index         int        `json:"index"`
	Spec          string     `json:"spec"`
	BytesWritten  uint64     `json:"bytes_written"`
	BytesVerified uint64     `json:"bytes_verified"`
	Mismatches    uint64     `json:"mismatch_count"`
	WriteErrors   uint64     `json:"write_errors"`
	FsyncErrors   uint64     `json:"fsync_errors"`
	Status        PassStatus `json:"status"`
}

// OverallStatus is the derived per-device outcome.
type OverallStatus string

const (
	StatusSuccess  OverallStatus = "success"
	StatusErrors   OverallStatus = "failure-with-errors"
	StatusAborted  OverallStatus = "aborted"
	StatusDisabled OverallStatus = "disabled"
)

// DeviceResult is the per-device record the certificate and summary
// producers consume.
type DeviceResult struct {
	// CertificateID is a fresh tamper-evident identifier stamped on the
	// record.
	CertificateID string `json:"certificate_id"`

	Path   string `json:"path"`
	Model  string `json:"model,omitempty"`
	Serial string `json:"serial,omitempty"`

	Method  string `json:"method"`
	PRNG    string `json:"prng"`
	Rounds  int    `json:"rounds"`
	Verify  string `json:"verify"`
	NoBlank bool   `json:"noblank"`

	HPABefore string `json:"hpa_before"`
	HPAAfter  string `json:"hpa_after"`

	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`

	RoundSize   uint64 `json:"round_size"`
	BytesErased uint64 `json:"bytes_erased"`

	PassErrors   uint64 `json:"pass_errors"`
	VerifyErrors uint64 `json:"verify_errors"`
	FsyncErrors  uint64 `json:"fsync_errors"`

	Passes []PassOutcome `json:"passes,omitempty"`

	// ExitCode is the worker exit code: 0 success, positive non-fatal
	// error count, negative fatal.
	ExitCode int `json:"exit_code"`

	// Abandoned marks a worker that outlived the join deadline.
	Abandoned bool `json:"abandoned,omitempty"`

	Status OverallStatus `json:"status"`
}

// Success reports whether the device finished clean.
func (d *DeviceResult) Success() bool { return d.Status == StatusSuccess }

// Report is the aggregate of one supervisor run.
type Report struct {
	RunID       uuid.UUID      `json:"run_id"`
	Started     time.Time      `json:"started"`
	Finished    time.Time      `json:"finished"`
	UserAborted bool           `json:"user_aborted"`
	Devices     []DeviceResult `json:"devices"`
}

// ExitCode maps the report to the process exit code: 0 when every
// selected device completed with zero errors, 1 when any finished with
// errors or the run was aborted.
func (r *Report) ExitCode() int {
	if r.UserAborted {
		return 1
	}
	for i := range r.Devices {
		if !r.Devices[i].Success() {
			return 1
		}
	}
	return 0
}

// newDeviceResult snapshots a device's progress block into its final
// record.
func (s *Supervisor) newDeviceResult(c *device.Context, hpaBefore device.HPAStatus, outcomes []PassOutcome, abandoned bool) DeviceResult {
	p := &c.Progress

	serial := c.Serial
	if s.opts.Quiet {
		serial = device.AnonymizedSerial(serial)
	}

	d := DeviceResult{
		CertificateID: nanoid.Must().String(),
		Path:          c.Path,
		Model:         c.Model,
		Serial:        serial,
		Method:        s.opts.Method.String(),
		PRNG:          s.opts.PRNG.String(),
		Rounds:        s.opts.Rounds,
		Verify:        s.opts.Verify.String(),
		NoBlank:       s.opts.NoBlank,
		HPABefore:     hpaBefore.String(),
		HPAAfter:      c.HPA.String(),
		RoundSize:     p.RoundSize,
		BytesErased:   p.BytesErased.Load(),
		PassErrors:    p.PassErrors.Load(),
		VerifyErrors:  p.VerifyErrors.Load(),
		FsyncErrors:   p.FsyncErrors.Load(),
		Passes:        outcomes,
		ExitCode:      int(p.Result.Load()),
		Abandoned:     abandoned,
	}

	if start := p.StartTime.Load(); start != 0 {
		d.Start = time.Unix(0, start)
	}
	if end := p.EndTime.Load(); end != 0 {
		d.End = time.Unix(0, end)
		if !d.Start.IsZero() {
			d.Duration = d.End.Sub(d.Start)
		}
	}

	switch {
	case c.Selection == device.Disabled:
		d.Status = StatusDisabled
	case s.cancel.Load():
		d.Status = StatusAborted
	case d.ExitCode == 0 && p.TotalErrors() == 0 && !abandoned:
		d.Status = StatusSuccess
	default:
		d.Status = StatusErrors
	}

	return d
}
