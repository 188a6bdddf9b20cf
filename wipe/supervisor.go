// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package wipe

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/sixafter/scour/ata"
	"github.com/sixafter/scour/device"
	"github.com/sixafter/scour/events"
	"github.com/sixafter/scour/method"
)

// Supervisor is the single-threaded control plane: it resolves and probes
// the selected devices, spawns one worker per device, multiplexes
// signals, and aggregates results.
type Supervisor struct {
	opts Options
	em   events.Emitter

	cancel    atomic.Bool
	userAbort atomic.Bool
	signal    atomic.Int32

	cancelCh   chan struct{}
	cancelOnce sync.Once
}

// New builds a Supervisor from the default options and the supplied
// overrides.
func New(opts ...Option) (*Supervisor, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Supervisor{
		opts:     o,
		em:       events.NewEmitter(o.Sink),
		cancelCh: make(chan struct{}),
	}, nil
}

// Cancel delivers the one-way cancellation signal to every worker. Once
// set it is never cleared within a run.
func (s *Supervisor) Cancel() {
	s.cancel.Store(true)
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

// prepared is one device readied for wiping.
type prepared struct {
	ctx       *device.Context
	h         *device.Handle
	hpaBefore device.HPAStatus
	w         *worker
	done      chan struct{}
	abandoned bool
}

// Run wipes the devices at the given paths. With no paths and Autonuke
// set, every enumerated candidate is wiped. Run blocks until all workers
// finish or the cancellation deadline elapses, then returns the
// aggregated report. Device selection beyond this (interactive pickers)
// is the caller's concern.
func (s *Supervisor) Run(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{RunID: uuid.New(), Started: time.Now()}

	if len(paths) == 0 {
		if !s.opts.Autonuke {
			return nil, ErrNoDevices
		}
		devs, err := device.Enumerate(s.opts.Exclude, s.opts.NoUSB)
		if err != nil {
			return nil, fmt.Errorf("wipe: enumerate: %w", err)
		}
		for _, d := range devs {
			paths = append(paths, d.Path)
		}
	}
	paths = s.filterExcluded(paths)
	if len(paths) == 0 {
		return nil, ErrNoDevices
	}

	var preps []*prepared
	for _, path := range paths {
		preps = append(preps, s.prepare(path))
	}

	selected := 0
	for _, pr := range preps {
		if pr.ctx.Selection == device.Selected {
			selected++
		}
	}
	if selected == 0 {
		s.finish(report, preps)
		return report, ErrNoDevices
	}

	if err := s.checkPrivileges(preps); err != nil {
		s.finish(report, preps)
		return report, err
	}

	stopSignals := s.watchSignals(preps)
	defer stopSignals()

	// Propagate context cancellation into the engine's one-way flag.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		select {
		case <-watchCtx.Done():
			if ctx.Err() != nil {
				s.Cancel()
			}
		case <-s.cancelCh:
		}
	}()

	for _, pr := range preps {
		if pr.ctx.Selection != device.Selected {
			continue
		}
		// A cancellation that lands before a worker starts leaves its
		// device untouched.
		if s.cancel.Load() {
			pr.ctx.Progress.Result.Store(-1)
			continue
		}
		pr.w = &worker{
			dev:    pr.ctx,
			h:      pr.h,
			opts:   &s.opts,
			em:     s.em.WithDevice(pr.ctx.Path),
			cancel: &s.cancel,
		}
		pr.done = make(chan struct{})
		go func(pr *prepared) {
			defer close(pr.done)
			pr.w.run()
		}(pr)
	}

	s.join(preps)
	s.finish(report, preps)
	return report, nil
}

// filterExcluded drops excluded paths from an explicit selection.
func (s *Supervisor) filterExcluded(paths []string) []string {
	if len(s.opts.Exclude) == 0 {
		return paths
	}
	excluded := make(map[string]struct{}, len(s.opts.Exclude))
	for _, p := range s.opts.Exclude {
		excluded[p] = struct{}{}
	}
	out := paths[:0]
	for _, p := range paths {
		if _, ok := excluded[p]; ok {
			s.em.Noticef("excluding %s", p)
			continue
		}
		out = append(out, p)
	}
	return out
}

// checkPrivileges rejects block-device targets without root.
func (s *Supervisor) checkPrivileges(preps []*prepared) error {
	if os.Geteuid() == 0 {
		return nil
	}
	for _, pr := range preps {
		if pr.h != nil && pr.h.Block() {
			return ErrNotRoot
		}
	}
	return nil
}

// prepare opens, sizes, and probes one device, computing its round size.
// Failures disable the device; the run continues with the others.
func (s *Supervisor) prepare(path string) *prepared {
	em := s.em.WithDevice(path)
	pr := &prepared{ctx: device.Describe(path)}
	c := pr.ctx

	h, err := device.Open(path, s.opts.IOMode, s.opts.SyncMode == SyncEveryBlock)
	if err != nil {
		em.Errorf("open: %v", err)
		c.Selection = device.Disabled
		c.Progress.Result.Store(-1)
		return pr
	}
	pr.h = h

	size, lss, pbs, err := h.Geometry()
	if err != nil {
		em.Errorf("size discovery: %v", err)
		_ = h.Close()
		pr.h = nil
		c.Selection = device.Disabled
		c.Progress.Result.Store(-1)
		return pr
	}
	c.Size = size
	c.LogicalSectorSize = lss
	c.PhysicalSectorSize = pbs

	if !h.Block() {
		em.Noticef("regular file; wiping as image")
		c.HPA = device.HPANotSupported
		c.RealMaxBytes = size
	} else if c.Bus.ATAClass() {
		raw := ata.Probe(h.Fd())
		c.HPAReportedSet = raw.HPASet
		c.HPAReportedReal = raw.HPAReal
		c.DCORealMaxSectors = raw.DCOMax
		c.HPA, c.RealMaxBytes = ata.Reconcile(raw, size, lss)
		if c.HPA == device.HPAEnabled {
			em.Warnf("hidden area: %d sectors (%s)", c.HiddenSectors(), c.HiddenSizeText())
		}
	} else {
		c.HPA = device.HPANotApplicable
		c.RealMaxBytes = size
	}

	base := s.opts.Method.BasePassSize(c.RealMaxBytes)
	total, _, err := method.RoundSize(method.SizeInput{
		BasePassSize: base,
		DeviceSize:   c.RealMaxBytes,
		Rounds:       uint64(s.opts.Rounds),
		NoBlank:      s.opts.NoBlank,
		Verify:       s.opts.Verify,
		Class:        s.opts.Method.Class(),
	})
	if err != nil {
		em.Errorf("round size: %v", err)
		_ = h.Close()
		pr.h = nil
		c.Selection = device.Disabled
		c.Progress.Result.Store(-1)
		return pr
	}
	// The calculator's base counts write passes only. Read-backs embedded
	// in the method body (verify_zero, verify_one) are covered by its
	// doubled base under VerifyAll and are added here otherwise.
	if s.opts.Verify != method.VerifyAll && s.opts.Method.Class() == method.ClassDefault {
		body, _ := method.Schedule(s.opts.Method, 1, method.VerifyNone, true)
		for _, ps := range body {
			if ps.Kind == method.Verify {
				total += c.RealMaxBytes * uint64(s.opts.Rounds)
			}
		}
	}
	c.Progress.RoundSize = total

	pr.hpaBefore = c.HPA
	c.Selection = device.Selected
	em.Infof("%s, %s, round size %s", c.Bus, humanize.IBytes(c.RealMaxBytes), humanize.IBytes(total))
	return pr
}

// watchSignals multiplexes the run's signal set: SIGUSR1 snapshots
// progress, the termination set cancels.
func (s *Supervisor) watchSignals(preps []*prepared) func() {
	if s.opts.NoSignals {
		return func() {}
	}

	ch := make(chan os.Signal, 4)
	signal.Notify(ch, unix.SIGUSR1, unix.SIGHUP, unix.SIGINT, unix.SIGQUIT, unix.SIGTERM)

	go func() {
		for sig := range ch {
			if sig == unix.SIGUSR1 {
				s.emitProgress(preps)
				continue
			}
			if u, ok := sig.(unix.Signal); ok {
				s.signal.Store(int32(u))
				for _, pr := range preps {
					pr.ctx.Progress.Signal.Store(int32(u))
				}
			}
			s.userAbort.Store(true)
			s.Cancel()
		}
	}()

	return func() {
		signal.Stop(ch)
		close(ch)
	}
}

// emitProgress publishes one status event per active device.
func (s *Supervisor) emitProgress(preps []*prepared) {
	for _, pr := range preps {
		p := &pr.ctx.Progress
		if device.WipeStatus(p.Status.Load()) == device.NotStarted {
			continue
		}
		done := p.BytesErased.Load()
		pct := 0.0
		if p.RoundSize > 0 {
			pct = float64(done) / float64(p.RoundSize) * 100
		}
		s.em.WithDevice(pr.ctx.Path).Emit(events.Info,
			fmt.Sprintf("pass %d round %d: %s of %s (%.1f%%)",
				p.Pass.Load(), p.Round.Load(),
				humanize.IBytes(done), humanize.IBytes(p.RoundSize), pct),
			map[string]any{
				"bytes_erased":  done,
				"round_size":    p.RoundSize,
				"pass_errors":   p.PassErrors.Load(),
				"verify_errors": p.VerifyErrors.Load(),
				"fsync_errors":  p.FsyncErrors.Load(),
			})
	}
}

// join waits for every worker; after cancellation each gets the join
// deadline before being recorded as abandoned, its descriptor left to
// process exit.
func (s *Supervisor) join(preps []*prepared) {
	for _, pr := range preps {
		if pr.done == nil {
			continue
		}
		select {
		case <-pr.done:
			continue
		case <-s.cancelCh:
		}

		select {
		case <-pr.done:
		case <-time.After(s.opts.JoinTimeout):
			pr.abandoned = true
			s.em.WithDevice(pr.ctx.Path).Errorf("worker stuck; abandoning after %s", s.opts.JoinTimeout)
		}
	}
}

// finish closes descriptors, builds the report, and emits the per-device
// summary lines plus the final status.
func (s *Supervisor) finish(report *Report, preps []*prepared) {
	for _, pr := range preps {
		if pr.h != nil && !pr.abandoned {
			_ = pr.h.Close()
		}

		var outcomes []PassOutcome
		if pr.w != nil && !pr.abandoned {
			outcomes = pr.w.outcomes
		}
		d := s.newDeviceResult(pr.ctx, pr.hpaBefore, outcomes, pr.abandoned)
		report.Devices = append(report.Devices, d)

		s.em.WithDevice(d.Path).Noticef("%s: %s, %s erased, errors: %d pass / %d verify / %d fsync",
			d.Method, d.Status, humanize.IBytes(d.BytesErased),
			d.PassErrors, d.VerifyErrors, d.FsyncErrors)
	}

	report.UserAborted = s.userAbort.Load()
	report.Finished = time.Now()
	s.em.Noticef("run %s finished: exit %d", report.RunID, report.ExitCode())
}
