// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd wires the calcd command-line surface: running a graph
// configuration to completion, and validating one without running it.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calcd/calcd/common"
)

var rootCmd = &cobra.Command{
	Use:   common.App,
	Short: "calcd runs dataflow graphs of calculators",
	Long: "calcd assembles a graph configuration into calculator nodes, streams and " +
		"a scheduler, runs it to completion or until cancelled, and exposes an " +
		"admin/metrics surface over HTTP while it runs.",
	Version: common.Version,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
