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
	"sync/atomic"
	"time"
)

// MigrationInfo names the source and destination subvolumes of an
// in-progress migration. It is separately ref-counted from
// the rest of the inode context because concurrent FOPs may read it
// after the inode lock is dropped: a reference-counted value swapped
// atomically on the owning inode's slot rather than cast through an
// opaque integer.
type MigrationInfo struct {
	Src, Dst int

	refs atomic.Int32
}

// NewMigrationInfo returns a MigrationInfo with one reference already
// held (the caller's).
func NewMigrationInfo(src, dst int) *MigrationInfo {
	mi := &MigrationInfo{Src: src, Dst: dst}
	mi.refs.Store(1)
	return mi
}

// Ref bumps the refcount and returns mi, for readers that bump the
// refcount, drop the inode lock, then read the value unguarded.
func (mi *MigrationInfo) Ref() *MigrationInfo {
	if mi == nil {
		return nil
	}
	mi.refs.Add(1)
	return mi
}

// Unref drops a reference. The Go runtime reclaims the value once it is
// unreachable regardless, but callers that need to know "am I the last
// reader" (e.g. to decide whether to log migration completion) can use
// the returned count.
func (mi *MigrationInfo) Unref() int32 {
	if mi == nil {
		return 0
	}
	return mi.refs.Add(-1)
}

// InodeCtx is the per-inode, core-private context. A
// per-inode spinlock (here, a plain sync.Mutex — Go has no user-space
// spinlock primitive, and a mutex serving the same "held only for
// pointer swaps and list traversal, never across I/O" discipline is the
// idiomatic substitute) guards every field.
type InodeCtx struct {
	mu sync.Mutex

	layout *Layout

	// cachedSubvol denormalizes layout.Segments[0].SubvolIndex for hot-path
	// reads that don't want to re-walk the layout.
	cachedSubvol int
	hasCached    bool

	// mds is the metadata-authoritative subvolume for this directory.
	mds    int
	hasMDS bool

	// lockSubvol is recorded on first lock acquisition and used for every
	// subsequent unlock, regardless of the live cached subvolume, to
	// preserve NFS-purge affinity.
	lockSubvol    int
	hasLockSubvol bool

	atime, mtime, ctime time.Time

	migration atomic.Pointer[MigrationInfo]

	// fds is the set of open descriptors on this inode, needed by the
	// migration-complete reopen walk.
	fds map[*FdCtx]struct{}
}

// NewInodeCtx returns an empty context.
func NewInodeCtx() *InodeCtx {
	return &InodeCtx{fds: make(map[*FdCtx]struct{})}
}

func (c *InodeCtx) Lock()   { c.mu.Lock() }
func (c *InodeCtx) Unlock() { c.mu.Unlock() }

// Layout returns the cached layout snapshot. Callers must not mutate
// the returned value; layouts are immutable once published, swapped
// wholesale under SetLayout.
func (c *InodeCtx) Layout() *Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

// SetLayout publishes a new layout and, if it is non-empty, denormalizes
// its first segment's subvolume as the cached subvolume.
func (c *InodeCtx) SetLayout(l *Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout = l
	if l != nil && len(l.Segments) > 0 {
		c.cachedSubvol = l.Segments[0].SubvolIndex
		c.hasCached = true
	}
}

// CachedSubvol returns the subvolume currently believed to hold this
// inode's data, and whether one has ever been set.
func (c *InodeCtx) CachedSubvol() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedSubvol, c.hasCached
}

// SetCachedSubvol updates the cached subvolume directly, used by the
// migration-complete handler.
func (c *InodeCtx) SetCachedSubvol(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedSubvol = idx
	c.hasCached = true
}

// MDS returns the metadata-authoritative subvolume, if recorded.
func (c *InodeCtx) MDS() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mds, c.hasMDS
}

func (c *InodeCtx) SetMDS(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mds = idx
	c.hasMDS = true
}

func (c *InodeCtx) ClearMDS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mds = 0
	c.hasMDS = false
}

// LockSubvol returns the subvolume to target for unlock, recording idx
// as the lock subvolume if none has been recorded yet.
func (c *InodeCtx) LockSubvol(idx int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasLockSubvol {
		c.lockSubvol = idx
		c.hasLockSubvol = true
	}
	return c.lockSubvol
}

// Times returns the last-observed (atime, mtime, ctime) triple for stat
// merging.
func (c *InodeCtx) Times() (atime, mtime, ctime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atime, c.mtime, c.ctime
}

func (c *InodeCtx) SetTimes(atime, mtime, ctime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.atime, c.mtime, c.ctime = atime, mtime, ctime
}

// Migration returns a referenced MigrationInfo (or nil), bumping its
// refcount before releasing the inode lock so the caller can read it
// safely after the lock is dropped.
func (c *InodeCtx) Migration() *MigrationInfo {
	c.mu.Lock()
	mi := c.migration.Load()
	mi = mi.Ref()
	c.mu.Unlock()
	return mi
}

// SetMigration atomically replaces the migration-info slot: an
// unconditional store made under the inode lock.
func (c *InodeCtx) SetMigration(mi *MigrationInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.migration.Store(mi)
}

// ClearMigration resets the migration-info slot to nil, used when
// some other layer turns out to already own this migration.
func (c *InodeCtx) ClearMigration() {
	c.SetMigration(nil)
}

// AddFd and RemoveFd maintain the fd set the migration-complete reopen
// walk iterates. The walk holds the inode lock only while copying the
// list; see reopenDescriptors in migration.go, which reopens each fd
// from that snapshot with the lock released.
func (c *InodeCtx) AddFd(fd *FdCtx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fds[fd] = struct{}{}
}

func (c *InodeCtx) RemoveFd(fd *FdCtx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fds, fd)
}

// snapshotFds returns the current fd set as a slice, taken under the
// inode lock and then released immediately — callers must not hold the
// inode lock while acting on the result.
func (c *InodeCtx) snapshotFds() []*FdCtx {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*FdCtx, 0, len(c.fds))
	for fd := range c.fds {
		out = append(out, fd)
	}
	return out
}

// InodeID identifies an inode for the purposes of the context
// side-table. A real deployment uses the gfid; tests may use any stable
// string.
type InodeID string

// ContextTable is a typed concurrent side-table from InodeID to
// *InodeCtx, standing in for a raw integer-indexed context slot array:
// it avoids the cast and lifetime ambiguity of a raw uint64-slot
// approach.
type ContextTable struct {
	m sync.Map // InodeID -> *InodeCtx
}

// GetOrCreate returns the existing context for id, creating one if
// necessary. The context is destroyed (removed from the table) only
// when the upper layer forgets the inode, via Forget.
func (t *ContextTable) GetOrCreate(id InodeID) *InodeCtx {
	if v, ok := t.m.Load(id); ok {
		return v.(*InodeCtx)
	}
	actual, _ := t.m.LoadOrStore(id, NewInodeCtx())
	return actual.(*InodeCtx)
}

// Lookup returns the context for id without creating one.
func (t *ContextTable) Lookup(id InodeID) (*InodeCtx, bool) {
	v, ok := t.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*InodeCtx), true
}

// Forget removes id's context: it is destroyed once the upper layer
// forgets the inode.
func (t *ContextTable) Forget(id InodeID) {
	t.m.Delete(id)
}
