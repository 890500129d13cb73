/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package conn

import "sync"

// queue runs functions one at a time in the order pushed.  Push never
// blocks.  A goroutine exists only while there is work.
type queue struct {
	mu      sync.Mutex
	fs      []func()
	running bool
}

func (q *queue) push(f func()) {
	q.mu.Lock()
	q.fs = append(q.fs, f)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()
	go q.drain()
}

func (q *queue) drain() {
	for {
		q.mu.Lock()
		if len(q.fs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		f := q.fs[0]
		q.fs[0] = nil
		q.fs = q.fs[1:]
		q.mu.Unlock()
		f()
	}
}
