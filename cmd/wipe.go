// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cmd

import (
	wipecmd "github.com/sixafter/scour/cmd/wipe"
)

func init() {
	RootCmd.AddCommand(wipecmd.NewWipeCommand())
}
