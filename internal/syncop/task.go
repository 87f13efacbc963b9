// Copyright 2026 The glusterfs-sub024 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package syncop provides a synchronous-looking concurrency shim:
// a pool of cooperative "synctasks" that let multi-step
// heal/migration logic be written as straight-line code while the
// underlying FOPs are dispatched asynchronously underneath.
//
// A goroutine already gives Go code exactly the synchronous-looking
// call shape — from the caller's perspective the call returns a plain
// (ret, errno) pair. What this package adds on top is (a) admission
// control, so a heal storm can't spawn unbounded goroutines, and (b) a
// completion-callback submission shape so call sites read the way a
// synctask API does.
package syncop

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Runtime is a bounded pool of synctask workers. Parallel goroutines are
// permitted; a single task body, once started, runs to completion
// without this package preempting it — Go's scheduler, not this
// package, is responsible for any further interleaving.
type Runtime struct {
	sem *semaphore.Weighted
}

// NewRuntime builds a Runtime admitting at most maxConcurrent synctasks
// at once. maxConcurrent <= 0 means unbounded.
func NewRuntime(maxConcurrent int64) *Runtime {
	if maxConcurrent <= 0 {
		return &Runtime{}
	}
	return &Runtime{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Func is a synctask body: it may block on syncop wrappers (ordinary
// blocking calls to a dht.Subvolume) and returns a final (ret, err)
// pair, which Run returns to its caller and Submit passes to its done
// callback.
type Func func(ctx context.Context) (ret int, err error)

// Run executes fn as a synctask and blocks the calling goroutine until
// it completes, returning its (ret, err). This is the shape almost
// every call site in this repository uses: the dispatcher submits a
// synctask and needs its result before it can decide how to reply to
// the suspended FOP.
func (r *Runtime) Run(ctx context.Context, fn Func) (int, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return 0, err
		}
		defer r.sem.Release(1)
	}
	return fn(ctx)
}

// Submit runs fn on its own goroutine (admission-controlled the same
// way Run is) and invokes done with its result when it completes. Use
// this when the caller does not want to block waiting for the synctask,
// e.g. a background fix-layout kicked off after add-brick.
func (r *Runtime) Submit(ctx context.Context, fn Func, done func(ret int, err error)) {
	go func() {
		ret, err := r.Run(ctx, fn)
		if done != nil {
			done(ret, err)
		}
	}()
}
