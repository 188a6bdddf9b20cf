// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// Tests for the wipe command plumbing: report-directory preflight, exit
// codes, confirmation gating.

package wipe

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_CheckReportDir verifies the writability preflight creates and
// probes the directory.
func Test_CheckReportDir(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	dir := filepath.Join(t.TempDir(), "reports")
	is.NoError(checkReportDir(dir))

	st, err := os.Stat(dir)
	is.NoError(err)
	is.True(st.IsDir())
}

// Test_CheckReportDir_Unwritable verifies the failure path behind exit
// code 2.
func Test_CheckReportDir_Unwritable(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	dir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.MkdirAll(dir, 0o500))
	is.Error(checkReportDir(filepath.Join(dir, "sub")))
}

// Test_ExitError verifies the coded error carries its cause and code.
func Test_ExitError(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	cause := errors.New("boom")
	err := &ExitError{Code: 99, Err: cause}
	is.Equal("boom", err.Error())
	is.ErrorIs(err, cause)

	bare := &ExitError{Code: 2}
	is.Equal("exit 2", bare.Error())
}

// Test_Confirm_NoWaitRefuses verifies --nowait never consents on its
// own.
func Test_Confirm_NoWaitRefuses(t *testing.T) {
	is := assert.New(t)

	nowait = true
	defer func() { nowait = false }()

	cmd := NewWipeCommand()
	is.False(confirm(cmd, []string{"/dev/sdz"}))
}

// Test_Confirm_RequiresYes verifies only a literal "yes" consents.
func Test_Confirm_RequiresYes(t *testing.T) {
	is := assert.New(t)

	nowait = false
	cmd := NewWipeCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	cmd.SetIn(bytes.NewBufferString("yes\n"))
	is.True(confirm(cmd, []string{"/dev/sdz"}))

	cmd.SetIn(bytes.NewBufferString("y\n"))
	is.False(confirm(cmd, []string{"/dev/sdz"}))

	is.Contains(out.String(), "irreversibly")
}

// Test_RunWipe_UnknownMethod verifies selector validation precedes any
// device access.
func Test_RunWipe_UnknownMethod(t *testing.T) {
	is := assert.New(t)

	cmd := NewWipeCommand()
	cmd.SetArgs([]string{"--method", "blender", "/dev/null"})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	is.Error(err)
}
