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

package dht

import (
	"sync"

	"golang.org/x/sys/unix"
)

// FdCtx is the per-open-handle context: a single
// pointer (here, a subvolume index plus the backend Handle) naming
// where the descriptor was opened. On migration the dispatcher must
// reopen it on the destination before the next operation and update
// this field.
type FdCtx struct {
	mu sync.Mutex

	inode   *InodeCtx
	gfid    string
	flags   int
	subvol  int
	handle  Handle
}

// NewFdCtx records the subvolume a descriptor was opened on.
func NewFdCtx(inode *InodeCtx, gfid string, flags, subvol int, handle Handle) *FdCtx {
	fd := &FdCtx{inode: inode, gfid: gfid, flags: flags, subvol: subvol, handle: handle}
	inode.AddFd(fd)
	return fd
}

// Subvol and Handle report the descriptor's current backend binding.
func (f *FdCtx) Subvol() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subvol
}

func (f *FdCtx) Handle() Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle
}

// Rebind updates the descriptor's subvolume/handle after a reopen.
func (f *FdCtx) Rebind(subvol int, handle Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subvol = subvol
	f.handle = handle
}

// reopenFlags strips O_CREAT|O_EXCL|O_TRUNC before a migration reopen,
// so a reopen on the destination doesn't re-truncate or re-create a
// file that is already present there.
func reopenFlags(flags int) int {
	return flags &^ (unix.O_CREAT | unix.O_EXCL | unix.O_TRUNC)
}

// Release detaches the fd from its inode's fd set. Call when the fd is
// closed.
func (f *FdCtx) Release() {
	f.mu.Lock()
	inode := f.inode
	f.mu.Unlock()
	if inode != nil {
		inode.RemoveFd(f)
	}
}
