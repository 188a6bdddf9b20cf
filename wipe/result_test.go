// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.
//
// Tests for the result aggregation and exit-code mapping.

package wipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test_Report_ExitCode verifies the 0/1 mapping over device outcomes and
// the abort flag.
func Test_Report_ExitCode(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := &Report{Devices: []DeviceResult{{Status: StatusSuccess}}}
	is.Equal(0, r.ExitCode())

	r.Devices = append(r.Devices, DeviceResult{Status: StatusErrors})
	is.Equal(1, r.ExitCode())

	r = &Report{UserAborted: true, Devices: []DeviceResult{{Status: StatusSuccess}}}
	is.Equal(1, r.ExitCode())

	r = &Report{Devices: []DeviceResult{{Status: StatusDisabled}}}
	is.Equal(1, r.ExitCode())
}

// Test_Report_JSONShape verifies the record the certificate producer
// consumes carries the counters under their documented keys.
func Test_Report_JSONShape(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	d := DeviceResult{
		CertificateID: "cert",
		Path:          "/dev/sdz",
		Method:        "dodshort",
		PRNG:          "aes_ctr",
		RoundSize:     5,
		BytesErased:   5,
		Status:        StatusSuccess,
	}
	b, err := json.Marshal(d)
	is.NoError(err)

	var m map[string]any
	is.NoError(json.Unmarshal(b, &m))
	is.Equal("cert", m["certificate_id"])
	is.Equal("dodshort", m["method"])
	is.Equal(float64(5), m["round_size"])
	is.Equal("success", m["status"])
}

// Test_PassOutcome_Invariants documents the outcome constraints: a
// mismatch never coexists with an ok status in worker-produced records.
func Test_PassOutcome_Invariants(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	out := PassOutcome{Mismatches: 1, Status: PassPartial}
	is.NotEqual(PassOK, out.Status)
	is.LessOrEqual(out.BytesVerified, out.BytesWritten+out.BytesVerified)
}
