// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package wipe

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sixafter/scour/device"
	"github.com/sixafter/scour/method"
	"github.com/sixafter/scour/prng"
	"github.com/sixafter/scour/wipe"
)

// Exit codes the command maps run outcomes to.
const (
	exitErrors    = 1
	exitReportDir = 2
	exitNotRoot   = 99
)

// ExitError carries a specific process exit code up to Execute.
type ExitError struct {
	Code int
	Err  error
}

// Error implements error.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap exposes the cause.
func (e *ExitError) Unwrap() error { return e.Err }

var (
	methodName   string
	prngName     string
	entropyName  string
	rounds       int
	verifyName   string
	noblank      bool
	syncEvery    int
	ioModeName   string
	exclude      []string
	noUSB        bool
	autonuke     bool
	autopoweroff bool
	nowait       bool
	nosignals    bool
	quiet        bool
	verbose      bool
	reportDir    string
)

// NewWipeCommand creates and returns the wipe command
func NewWipeCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "wipe [device...]",
		Short: "Securely erase one or more block devices",
		Long: `Erase every addressable sector of the named devices using the selected
method and keystream generator. Hidden areas (HPA/DCO) are discovered and
accounted for before writing. With --autonuke and no devices named, every
enumerated candidate is erased.

This operation is irreversible.`,
		RunE:         runWipe,
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&methodName, "method", "m", "dodshort", "Erasure method (dod522022m, dodshort, gutmann, ops2, is5enh, bruce7, bmb, random, zero, one, verify_zero, verify_one, secure_erase, secure_erase_prng_verify, sanitize_crypto_erase, sanitize_block_erase, sanitize_overwrite)")
	cmd.Flags().StringVarP(&prngName, "prng", "p", "aes_ctr", "Keystream generator (twister, isaac, xoshiro256, aes_ctr, aes_xts, ascon, chacha20)")
	cmd.Flags().StringVar(&entropyName, "entropy", "chacha20", "Seed source (chacha20, ctrdrbg)")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 1, "Number of times to run the method")
	cmd.Flags().StringVar(&verifyName, "verify", "last", "Read-back verification (off, last, all)")
	cmd.Flags().BoolVar(&noblank, "noblank", false, "Skip the final zero-fill pass")
	cmd.Flags().IntVar(&syncEvery, "sync", 0, "Data sync every N block writes; 0 syncs once per pass")
	cmd.Flags().StringVar(&ioModeName, "io-mode", "auto", "Device access mode (auto, direct, cached)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Device paths never to touch (up to 32)")
	cmd.Flags().BoolVar(&noUSB, "nousb", false, "Exclude USB bridges")
	cmd.Flags().BoolVar(&autonuke, "autonuke", false, "Skip confirmation; with no devices named, wipe every candidate")
	cmd.Flags().BoolVar(&autopoweroff, "autopoweroff", false, "Power off when the wipe completes")
	cmd.Flags().BoolVar(&nowait, "nowait", false, "Do not wait for confirmation input")
	cmd.Flags().BoolVar(&nosignals, "nosignals", false, "Do not install signal handlers")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Anonymize serial numbers")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory the JSON erasure report is written to")

	return cmd
}

// runWipe is the main execution function for the wipe command
func runWipe(cmd *cobra.Command, args []string) error {
	m, err := method.Parse(methodName)
	if err != nil {
		return err
	}
	alg, err := prng.Parse(prngName)
	if err != nil {
		return err
	}
	ent, err := prng.ParseEntropy(entropyName)
	if err != nil {
		return err
	}
	vm, err := method.ParseVerify(verifyName)
	if err != nil {
		return err
	}
	iom, err := device.ParseIOMode(ioModeName)
	if err != nil {
		return err
	}

	if reportDir != "" {
		if err := checkReportDir(reportDir); err != nil {
			return &ExitError{Code: exitReportDir, Err: err}
		}
	}
	if autopoweroff {
		if _, err := exec.LookPath("poweroff"); err != nil {
			return &ExitError{Code: exitErrors, Err: fmt.Errorf("autopoweroff requires the poweroff helper: %w", err)}
		}
	}

	if len(args) == 0 && !autonuke {
		return errors.New("no devices named; pass device paths or --autonuke")
	}
	if !autonuke && !confirm(cmd, args) {
		return errors.New("aborted")
	}

	sink := newLogSink(cmd.ErrOrStderr(), verbose)

	sup, err := wipe.New(
		wipe.WithMethod(m),
		wipe.WithPRNG(alg),
		wipe.WithEntropy(ent),
		wipe.WithRounds(rounds),
		wipe.WithVerify(vm),
		wipe.WithNoBlank(noblank),
		wipe.WithSync(syncEvery),
		wipe.WithIOMode(iom),
		wipe.WithExclude(exclude...),
		wipe.WithNoUSB(noUSB),
		wipe.WithAutonuke(autonuke),
		wipe.WithNoSignals(nosignals),
		wipe.WithQuiet(quiet),
		wipe.WithSink(sink),
	)
	if err != nil {
		return err
	}

	report, err := sup.Run(context.Background(), args)
	if err != nil {
		if errors.Is(err, wipe.ErrNotRoot) {
			return &ExitError{Code: exitNotRoot, Err: err}
		}
		return err
	}

	if reportDir != "" {
		if err := writeReport(reportDir, report); err != nil {
			return &ExitError{Code: exitReportDir, Err: err}
		}
	}

	if autopoweroff {
		_ = exec.Command("poweroff").Start()
	}

	if code := report.ExitCode(); code != 0 {
		return &ExitError{Code: code, Err: fmt.Errorf("wipe finished with errors")}
	}
	return nil
}

// confirm requires the operator to type "yes" before anything is
// written. nowait skips the prompt and refuses instead.
func confirm(cmd *cobra.Command, paths []string) bool {
	if nowait {
		return false
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(),
		"About to irreversibly erase: %s\nType 'yes' to continue: ", strings.Join(paths, ", "))
	reader := bufio.NewReader(cmd.InOrStdin())
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

// checkReportDir verifies the report directory is writable before any
// device is touched.
func checkReportDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report directory: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".scour-*")
	if err != nil {
		return fmt.Errorf("report directory not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// writeReport persists the run report for the certificate producer.
func writeReport(dir string, report *wipe.Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("scour-report-%s.json", report.RunID))
	return os.WriteFile(path, b, 0o600)
}
