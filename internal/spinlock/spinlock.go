/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package spinlock provides a minimal spin-based mutual exclusion
// primitive for short critical sections.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Lock is a non-reentrant spin lock. The zero value is unlocked.
//
// A goroutine that calls Lock twice without an intervening Unlock
// deadlocks. Critical sections guarded by a Lock must not block.
type Lock struct {
	state uint32
}

// Lock acquires l, spinning until it is available.
func (l *Lock) Lock() {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases l. Unlocking a lock that is not held panics.
func (l *Lock) Unlock() {
	if !atomic.CompareAndSwapUint32(&l.state, 1, 0) {
		panic("spinlock: unlock of unlocked lock")
	}
}
