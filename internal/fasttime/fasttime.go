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

// Package fasttime caches a wall-clock reading (UnixNano, refreshed every
// millisecond, with no monotonic component) so the scheduler's run-time
// accounting (Start/Overhead) doesn't pay for a time.Now() call each time.
package fasttime

import (
	"sync/atomic"
	"time"
)

func init() {
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			atomic.StoreInt64(&currentNanos, time.Now().UnixNano())
		}
	}()
}

var currentNanos = time.Now().UnixNano()

// Now 返回缓存的时间读数 精度为毫秒级
func Now() time.Time {
	return time.Unix(0, atomic.LoadInt64(&currentNanos))
}

// UnixNano 获取当前缓存的纳秒时间戳 性能更快
func UnixNano() int64 {
	return atomic.LoadInt64(&currentNanos)
}
