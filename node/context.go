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

package node

import (
	"github.com/calcd/calcd/calculator"
	"github.com/calcd/calcd/gerrors"
	"github.com/calcd/calcd/outstream"
	"github.com/calcd/calcd/packet"
	"github.com/calcd/calcd/sidepacket"
	"github.com/calcd/calcd/timestamp"
)

// Context is the per-invocation implementation of calculator.Context,
// built fresh for every Open/Process/Close call and discarded once the
// call returns.
type Context struct {
	n         *Node
	ts        timestamp.Timestamp
	inputs    map[string]packet.Packet
	shards    map[string]*outstream.Shard
	sides     *sidepacket.Manager
	opening   bool
}

var _ calculator.Context = (*Context)(nil)

func (c *Context) Input(name string) (packet.Packet, bool) {
	p, ok := c.inputs[name]
	return p, ok
}

func (c *Context) Output(name string, p packet.Packet) error {
	if _, ok := c.n.Outputs[name]; !ok {
		return gerrors.NotFoundf("node %s: no such output %q", c.n.Name, name)
	}
	shard, ok := c.shards[name]
	if !ok {
		return gerrors.Internalf("node %s: output %q has no shard for this invocation", c.n.Name, name)
	}
	if p.Timestamp() == timestamp.Unset {
		p = p.At(c.ts)
	}
	shard.AddPacket(p)
	return nil
}

func (c *Context) SidePacket(name string) (packet.Packet, bool) {
	if c.sides == nil {
		return packet.Packet{}, false
	}
	return c.sides.Get(name)
}

func (c *Context) SetOffset(offset int64) error {
	if !c.opening {
		return gerrors.FailedPreconditionf("node %s: SetOffset is only valid during Open", c.n.Name)
	}
	c.n.setOffset(offset)
	return nil
}

func (c *Context) SetSourceProcessOrder(order int64) error {
	if !c.opening {
		return gerrors.FailedPreconditionf("node %s: SetSourceProcessOrder is only valid during Open", c.n.Name)
	}
	if !c.n.IsSource {
		return gerrors.FailedPreconditionf("node %s: SetSourceProcessOrder is only valid on source nodes", c.n.Name)
	}
	c.n.setSourceProcessOrder(order)
	return nil
}

// Timestamp returns the timestamp this invocation is running under
// (timestamp.Unstarted during Open, timestamp.Done during Close).
func (c *Context) Timestamp() timestamp.Timestamp { return c.ts }
