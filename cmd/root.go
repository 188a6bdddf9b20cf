// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	wipecmd "github.com/sixafter/scour/cmd/wipe"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "scour",
	Short: "A secure block-device erasure engine",
	Long:  `Scour overwrites every addressable sector of the selected block devices with prescribed patterns or cryptographically strong keystreams, discovers and accounts for HPA/DCO hidden areas, optionally verifies each pass by read-back, and produces a per-device erasure record.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		var coded *wipecmd.ExitError
		if errors.As(err, &coded) {
			os.Exit(coded.Code)
		}
		fmt.Fprintf(os.Stderr, "Error executing scour: %v\n", err)
		os.Exit(1)
	}
}
