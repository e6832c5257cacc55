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

// Package graphconfig decodes a raw graph configuration into the
// canonicalized, topologically sorted artifact the rest of the core
// treats as read-only, per spec.md §6.
package graphconfig

// NodeConfig is one raw "node" entry as written in a graph config file.
type NodeConfig struct {
	Name               string         `config:"name"`
	Calculator         string         `config:"calculator"`
	InputStream        []string       `config:"input_stream"`
	OutputStream       []string       `config:"output_stream"`
	InputSidePacket    []string       `config:"input_side_packet"`
	OutputSidePacket   []string       `config:"output_side_packet"`
	BackEdgeInputStream []string      `config:"back_edge_input_stream"`
	InputStreamHandler string         `config:"input_stream_handler"`
	Executor           string         `config:"executor"`
	SourceLayer        int            `config:"source_layer"`
	Options            map[string]any `config:"options"`
}

// ExecutorConfig declares a named non-default executor.
type ExecutorConfig struct {
	Name       string `config:"name"`
	Type       string `config:"type"` // "thread_pool" | "application" | "current_thread"
	NumThreads int    `config:"num_threads"`
}

// PacketGeneratorConfig is one raw "packet_generator" entry.
type PacketGeneratorConfig struct {
	Generator        string         `config:"generator"`
	InputSidePacket  []string       `config:"input_side_packet"`
	OutputSidePacket []string       `config:"output_side_packet"`
	Options          map[string]any `config:"options"`
}

// GraphConfig is the raw, as-decoded shape of a graph configuration file,
// before validation and canonicalization.
type GraphConfig struct {
	NumThreads      int                     `config:"num_threads"`
	MaxQueueSize    int                     `config:"max_queue_size"`
	Executor        []ExecutorConfig        `config:"executor"`
	Node            []NodeConfig            `config:"node"`
	PacketGenerator []PacketGeneratorConfig `config:"packet_generator"`
	InputStream     []string                `config:"input_stream"`
	OutputStream    []string                `config:"output_stream"`
}

const (
	// DefaultMaxQueueSize is used for any stream whose graph config left
	// max_queue_size unset.
	DefaultMaxQueueSize = 100
)
