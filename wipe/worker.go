// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package wipe

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sixafter/scour/ata"
	"github.com/sixafter/scour/device"
	"github.com/sixafter/scour/events"
	"github.com/sixafter/scour/method"
	"github.com/sixafter/scour/prng"
)

// worker erases one device. It owns the device handle and its Context's
// progress block exclusively; the supervisor only reads.
type worker struct {
	dev  *device.Context
	h    *device.Handle
	opts *Options
	em   events.Emitter

	cancel *atomic.Bool

	stream prng.Stream
	// replay is the keystream position at the start of the most recent
	// random pass; verification re-derives from a copy of it.
	replay prng.Stream

	schedule []method.PassSpec
	outcomes []PassOutcome

	// downgraded is set after an auto io-mode fallback to cached.
	downgraded bool
	wroteAny   bool
}

// run executes the pass schedule and returns the worker exit code:
// 0 success, positive non-fatal error count, negative fatal.
func (w *worker) run() int {
	p := &w.dev.Progress
	p.Status.Store(int32(device.Running))
	p.StartTime.Store(time.Now().UnixNano())
	defer func() {
		p.EndTime.Store(time.Now().UnixNano())
		p.Status.Store(int32(device.Completed))
	}()

	if code, done := w.seed(); done {
		p.Result.Store(int32(code))
		return code
	}

	if w.opts.Method.Firmware() {
		code := w.runFirmware()
		p.Result.Store(int32(code))
		return code
	}

	var err error
	w.schedule, err = method.Schedule(w.opts.Method, w.opts.Rounds, w.opts.Verify, w.opts.NoBlank)
	if err != nil {
		w.em.Errorf("schedule: %v", err)
		p.Result.Store(-1)
		return -1
	}

	perRound := len(w.schedule) / w.opts.Rounds
	if perRound < 1 {
		perRound = 1
	}

	for i, pass := range w.schedule {
		// Cancellation between passes: the next pass must not start.
		if w.cancel.Load() {
			break
		}

		p.Pass.Store(int32(i + 1))
		round := i/perRound + 1
		if round > w.opts.Rounds {
			round = w.opts.Rounds
		}
		p.Round.Store(int32(round))

		w.em.Debugf("pass %d/%d: %s", i+1, len(w.schedule), pass)

		var out PassOutcome
		var fatal bool
		if pass.Kind == method.Verify {
			out = w.verifyPass(i, pass)
		} else {
			out, fatal = w.writePass(i, pass)
		}
		w.outcomes = append(w.outcomes, out)
		if fatal {
			p.Result.Store(-1)
			return -1
		}
	}

	errs := p.TotalErrors()
	code := 0
	if errs > 0 {
		code = int(errs)
	}
	p.Result.Store(int32(code))
	return code
}

// seedRetries bounds how many freshly seeded generators may be discarded
// on gate rejection before the worker gives up.
const seedRetries = 5

// seed draws entropy, constructs the keystream, and applies the gate. A
// rejected generator is never used; a fresh seed gets a fresh attempt,
// up to seedRetries.
func (w *worker) seed() (int, bool) {
	if !w.opts.Method.UsesKeystream() {
		return 0, false
	}

	var err error
	for attempt := 0; attempt < seedRetries; attempt++ {
		var seedBytes []byte
		seedBytes, err = prng.ReadSeed(w.opts.Entropy.Reader())
		if err != nil {
			w.em.Fatalf("entropy: %v", err)
			return -1, true
		}
		w.stream, err = prng.New(w.opts.PRNG, seedBytes)
		if err == nil {
			return 0, false
		}
		if !errors.Is(err, prng.ErrGateRejected) {
			break
		}
		w.em.Noticef("entropy gate rejected a sample; reseeding")
	}

	w.em.Fatalf("prng %s: %v", w.opts.PRNG, err)
	return -1, true
}

// target returns the number of bytes each pass covers: the reconciled
// real capacity, falling back to the OS-reported size.
func (w *worker) target() uint64 {
	if w.dev.RealMaxBytes > 0 {
		return w.dev.RealMaxBytes
	}
	return w.dev.Size
}

// bufLen trims the configured buffer to a multiple of both the direct-IO
// alignment and the pattern repeat unit, so pattern phase is continuous
// across buffer boundaries.
func (w *worker) bufLen(unit int) int {
	align := 1
	if w.h.Direct() {
		align = int(w.dev.LogicalSectorSize)
		if align < 512 {
			align = 512
		}
	}
	if unit < 1 {
		unit = 1
	}
	step := lcm(align, unit)
	n := w.opts.BufferSize / step * step
	if n < step {
		n = step
	}
	return n
}

// writePass writes one pattern or keystream pass across the device.
func (w *worker) writePass(index int, pass method.PassSpec) (PassOutcome, bool) {
	out := PassOutcome{Index: index, Spec: pass.String(), Status: PassOK}
	p := &w.dev.Progress

	if _, err := w.h.File().Seek(0, io.SeekStart); err != nil {
		w.em.Errorf("seek: %v", err)
		out.Status = PassFailed
		return out, true
	}

	unit := 1
	if pass.Kind == method.Pattern {
		unit = len(pass.Repeat)
	}
	n := w.bufLen(unit)
	buf := device.AlignedBuffer(n, directAlign(w.h, w.dev))

	if pass.Kind == method.Pattern {
		tile(buf, pass.Repeat)
	} else {
		w.replay = w.stream.Snapshot()
	}

	target := w.target()
	var written uint64
	writes := 0

	for written < target {
		chunk := uint64(len(buf))
		if target-written < chunk {
			chunk = target - written
		}
		// Last-odd-block handling under direct I/O: shrink to an aligned
		// tail, or finish a sub-sector remainder through the page cache.
		if w.h.Direct() {
			if al := uint64(directAlign(w.h, w.dev)); chunk%al != 0 {
				if aligned := chunk - chunk%al; aligned > 0 {
					chunk = aligned
				} else if fatal := w.finishCached(written, &out); fatal {
					return out, true
				}
			}
		}
		b := buf[:chunk]

		if pass.Kind == method.RandomStream {
			w.stream.Fill(b)
		}

		wr, err := w.h.File().Write(b)
		if err != nil {
			fatal, retry := w.writeError(index, &out, err, written, uint64(wr))
			if fatal {
				return out, true
			}
			if retry {
				continue
			}
			// The failed region is skipped; reposition past it.
			if _, serr := w.h.File().Seek(int64(written+chunk), io.SeekStart); serr != nil {
				out.Status = PassFailed
				return out, true
			}
			written += chunk
			continue
		}

		w.wroteAny = true
		written += uint64(wr)
		out.BytesWritten += uint64(wr)
		p.BytesErased.Add(uint64(wr))

		writes++
		if w.opts.SyncMode == SyncEveryN && w.opts.SyncEvery > 0 && writes%w.opts.SyncEvery == 0 {
			w.datasync(&out)
		}

		// Cancellation between I/O buffers: finish the buffer, sync,
		// return.
		if w.cancel.Load() {
			if w.opts.SyncMode == SyncAtEnd || w.opts.SyncMode == SyncEveryN {
				w.datasync(&out)
			}
			out.Status = PassPartial
			return out, false
		}
	}

	if w.opts.SyncMode == SyncAtEnd || w.opts.SyncMode == SyncEveryN {
		w.datasync(&out)
	}

	if out.WriteErrors > 0 || out.FsyncErrors > 0 {
		out.Status = PassPartial
	}
	return out, false
}

// writeError applies the failure model for one failed buffer write: the
// auto io-mode downgrade on the very first write (retry the buffer),
// fatality under forced direct I/O, and the non-fatal counted path
// otherwise (skip the buffer).
func (w *worker) writeError(index int, out *PassOutcome, err error, written, wrote uint64) (fatal, retry bool) {
	p := &w.dev.Progress

	refused := errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EOPNOTSUPP)
	if refused && w.h.Direct() && !w.wroteAny && !w.downgraded {
		if w.opts.IOMode == device.IODirect {
			w.em.Fatalf("direct I/O refused: %v", err)
			out.Status = PassFailed
			return true, false
		}
		w.em.Noticef("direct I/O refused; reopening cached")
		w.downgraded = true
		if rerr := w.h.Reopen(); rerr != nil {
			w.em.Fatalf("reopen cached: %v", rerr)
			out.Status = PassFailed
			return true, false
		}
		if _, serr := w.h.File().Seek(int64(written), io.SeekStart); serr != nil {
			out.Status = PassFailed
			return true, false
		}
		return false, true
	}

	// Transient write error: count and continue the pass.
	w.em.Warnf("pass %d write error at %d: %v", index+1, written+wrote, err)
	out.WriteErrors++
	p.PassErrors.Add(1)
	return false, false
}

// finishCached reopens the device cached to transfer a sub-sector tail
// that direct I/O cannot express, restoring the file position.
func (w *worker) finishCached(pos uint64, out *PassOutcome) bool {
	if err := w.h.Reopen(); err != nil {
		w.em.Fatalf("reopen cached for tail: %v", err)
		out.Status = PassFailed
		return true
	}
	if _, err := w.h.File().Seek(int64(pos), io.SeekStart); err != nil {
		out.Status = PassFailed
		return true
	}
	return false
}

// datasync flushes and counts a failure without aborting.
func (w *worker) datasync(out *PassOutcome) {
	if w.opts.SyncMode == SyncNever || w.opts.SyncMode == SyncEveryBlock {
		return
	}
	if err := w.h.Datasync(); err != nil {
		w.em.Warnf("fdatasync: %v", err)
		out.FsyncErrors++
		w.dev.Progress.FsyncErrors.Add(1)
	}
}

// verifyPass reads the device back and compares against the expected
// pattern, or against a re-derived keystream for random passes.
// Verification continues to completion regardless of mismatches.
func (w *worker) verifyPass(index int, pass method.PassSpec) PassOutcome {
	out := PassOutcome{Index: index, Spec: pass.String(), Status: PassOK}
	p := &w.dev.Progress

	if _, err := w.h.File().Seek(0, io.SeekStart); err != nil {
		w.em.Errorf("seek: %v", err)
		out.Status = PassFailed
		return out
	}

	unit := 1
	if pass.Repeat != nil {
		unit = len(pass.Repeat)
	}
	n := w.bufLen(unit)
	rbuf := device.AlignedBuffer(n, directAlign(w.h, w.dev))
	expect := make([]byte, n)

	var replay prng.Stream
	if pass.Repeat != nil {
		tile(expect, pass.Repeat)
	} else {
		if w.replay == nil {
			w.em.Emit(events.Sanity, "verify scheduled with no keystream snapshot", nil)
			out.Status = PassFailed
			return out
		}
		replay = w.replay.Snapshot()
	}

	target := w.target()
	var read uint64

	for read < target {
		chunk := uint64(len(rbuf))
		if target-read < chunk {
			chunk = target - read
		}
		if w.h.Direct() {
			if al := uint64(directAlign(w.h, w.dev)); chunk%al != 0 {
				if aligned := chunk - chunk%al; aligned > 0 {
					chunk = aligned
				} else if fatal := w.finishCached(read, &out); fatal {
					return out
				}
			}
		}
		b := rbuf[:chunk]

		rd, err := io.ReadFull(w.h.File(), b)
		if err != nil {
			w.em.Warnf("verify read error at %d: %v", read, err)
			out.WriteErrors++
			p.PassErrors.Add(1)
			if _, serr := w.h.File().Seek(int64(read+chunk), io.SeekStart); serr != nil {
				out.Status = PassFailed
				return out
			}
			read += chunk
			continue
		}

		e := expect[:rd]
		if replay != nil {
			replay.Fill(e)
		}
		if !bytes.Equal(b[:rd], e) {
			out.Mismatches++
			p.VerifyErrors.Add(1)
		}

		read += uint64(rd)
		out.BytesVerified += uint64(rd)
		p.BytesErased.Add(uint64(rd))

		if w.cancel.Load() {
			out.Status = PassPartial
			return out
		}
	}

	if out.Mismatches > 0 || out.WriteErrors > 0 {
		out.Status = PassPartial
	}
	return out
}

// runFirmware routes the firmware methods to the ATA layer. The
// PRNG-verify variant follows the erase with one keystream pass and its
// read-back.
func (w *worker) runFirmware() int {
	p := &w.dev.Progress
	if !w.h.Block() {
		w.em.Errorf("%s requires a block device", w.opts.Method)
		return -1
	}

	var err error
	switch w.opts.Method {
	case method.SecureErase, method.SecureErasePRNGVerify:
		err = ata.SecurityErase(w.h.Fd(), false)
	case method.SanitizeCryptoErase:
		err = ata.Sanitize(w.h.Fd(), mustFeature("crypto"))
	case method.SanitizeBlockErase:
		err = ata.Sanitize(w.h.Fd(), mustFeature("block"))
	case method.SanitizeOverwrite:
		err = ata.Sanitize(w.h.Fd(), mustFeature("overwrite"))
	}
	if err != nil {
		w.em.Errorf("firmware erase: %v", err)
		p.PassErrors.Add(1)
		return 1
	}

	if w.opts.Method == method.SecureErasePRNGVerify {
		out, fatal := w.writePass(0, method.Rand())
		w.outcomes = append(w.outcomes, out)
		if fatal {
			return -1
		}
		w.outcomes = append(w.outcomes, w.verifyPass(1, method.CheckRandom()))
	}

	if errs := p.TotalErrors(); errs > 0 {
		return int(errs)
	}
	return 0
}

func mustFeature(kind string) byte {
	f, err := ata.SanitizeFeature(kind)
	if err != nil {
		panic(err)
	}
	return f
}

// tile fills buf with the repeat unit; len(buf) is a multiple of
// len(unit).
func tile(buf, unit []byte) {
	if len(unit) == 0 {
		return
	}
	n := copy(buf, unit)
	for n < len(buf) {
		n += copy(buf[n:], buf[:n])
	}
}

// directAlign returns the buffer alignment a handle needs.
func directAlign(h *device.Handle, d *device.Context) int {
	if !h.Direct() {
		return 1
	}
	if d.LogicalSectorSize >= 512 {
		return int(d.LogicalSectorSize)
	}
	return 512
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
