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

package syncop

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// AsRoot temporarily switches the calling goroutine's filesystem
// identity to root (uid 0, gid 0), for operations like "open fd after
// migration" that must bypass normal access checks because they run on
// behalf of the rebalancer. It locks the goroutine to its
// OS thread for the duration — Setfsuid/Setfsgid are per-OS-thread, and
// an unlocked goroutine could be rescheduled onto a thread with the
// wrong identity mid-operation.
//
// Every elevation must be paired with a restore on all exit paths; use
// it as:
//
//	restore := syncop.AsRoot()
//	defer restore()
func AsRoot() (restore func()) {
	runtime.LockOSThread()

	priorUID, _ := unix.SetfsuidRetUid(0)
	priorGID, _ := unix.SetfsgidRetGid(0)

	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		unix.Setfsgid(priorGID)
		unix.Setfsuid(priorUID)
		runtime.UnlockOSThread()
	}
}
