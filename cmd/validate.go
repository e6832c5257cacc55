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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	_ "github.com/calcd/calcd/calculators"
	"github.com/calcd/calcd/confengine"
	"github.com/calcd/calcd/graphconfig"
)

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a graph configuration without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := confengine.LoadConfigPath(validateConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		var raw graphconfig.GraphConfig
		if err := conf.Unpack(&raw); err != nil {
			return fmt.Errorf("failed to decode graph config: %w", err)
		}
		validated, err := graphconfig.Validate(&raw)
		if err != nil {
			return fmt.Errorf("invalid graph config: %w", err)
		}

		fmt.Printf("ok: %d node(s), %d input stream(s), %d output stream(s)\n",
			len(validated.Nodes), len(validated.InputStream), len(validated.OutputStream))
		return nil
	},
	Example: "# calcd validate --config graph.yaml",
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "graph.yaml", "Graph configuration file path")
	rootCmd.AddCommand(validateCmd)
}
