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

package executor

import (
	"context"
	"sync"

	"github.com/calcd/calcd/internal/rescue"
	"github.com/calcd/calcd/internal/wait"
)

// ThreadPool runs scheduled closures on a fixed number of worker
// goroutines pulling FIFO from a shared channel.
type ThreadPool struct {
	tasks  chan func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewThreadPool starts numThreads worker goroutines. numThreads <= 0 is
// treated as 1.
func NewThreadPool(numThreads int) *ThreadPool {
	if numThreads <= 0 {
		numThreads = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &ThreadPool{
		tasks:  make(chan func(), 4096),
		cancel: cancel,
	}
	p.wg.Add(numThreads)
	for i := 0; i < numThreads; i++ {
		go p.worker(ctx)
	}
	return p
}

func (p *ThreadPool) worker(ctx context.Context) {
	defer p.wg.Done()
	wait.Until(ctx, func() {
		select {
		case fn := <-p.tasks:
			p.run(fn)
		case <-ctx.Done():
		}
	})
	for {
		select {
		case fn := <-p.tasks:
			p.run(fn)
		default:
			return
		}
	}
}

func (p *ThreadPool) run(fn func()) {
	defer rescue.HandleCrash()
	fn()
}

func (p *ThreadPool) Schedule(fn func()) {
	p.tasks <- fn
}

func (p *ThreadPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
