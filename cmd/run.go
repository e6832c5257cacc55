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
	"github.com/calcd/calcd/graph"
	"github.com/calcd/calcd/graphconfig"
	"github.com/calcd/calcd/graphsvc"
	"github.com/calcd/calcd/internal/sigs"
	"github.com/calcd/calcd/logger"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a graph configuration to completion or until cancelled",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGraph(runConfigPath)
	},
	Example: "# calcd run --config graph.yaml",
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "graph.yaml", "Graph configuration file path")
	rootCmd.AddCommand(runCmd)
}

func runGraph(path string) error {
	conf, err := confengine.LoadConfigPath(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogger(conf); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	var raw graphconfig.GraphConfig
	if err := conf.Unpack(&raw); err != nil {
		return fmt.Errorf("failed to decode graph config: %w", err)
	}
	validated, err := graphconfig.Validate(&raw)
	if err != nil {
		return fmt.Errorf("invalid graph config: %w", err)
	}

	g := graph.New(validated)
	if err := g.Initialize(nil); err != nil {
		return fmt.Errorf("failed to initialize graph: %w", err)
	}

	var svrConfig graphsvc.Config
	if err := conf.UnpackChild("server", &svrConfig); err != nil {
		return fmt.Errorf("failed to decode server config: %w", err)
	}
	svr := graphsvc.New(svrConfig, g)
	if svr != nil {
		go func() {
			if err := svr.ListenAndServe(); err != nil {
				logger.Errorf("graphsvc stopped: %v", err)
			}
		}()
		defer svr.Close()
	}

	if err := g.StartRun(nil); err != nil {
		return fmt.Errorf("failed to start graph: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- g.WaitUntilDone() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("graph run finished with error: %w", err)
		}
		return nil

	case <-sigs.Terminate():
		logger.Infof("received termination signal, cancelling graph")
		g.Cancel()
		<-done
		return nil
	}
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}
	if !opts.Stdout && opts.Filename == "" {
		opts.Stdout = true
	}
	logger.SetOptions(opts)
	return nil
}
