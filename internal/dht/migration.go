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
	"context"
	"errors"

	"github.com/gluster/glusterfs-sub024/internal/syncop"
	"golang.org/x/sys/unix"
)

// MigrationCompleteCheck implements the migration-redirection
// synctask: it is scheduled when a
// data FOP fails on a source subvolume with the "file has been migrated
// away" sentinel. On success the caller should replay the original FOP
// against the subvolume now cached on inode.
func MigrationCompleteCheck(ctx context.Context, reg *Registry, inode *InodeCtx, instance, gfid string, source Subvolume) error {
	// Step 1: read the linkto xattr from the source.
	linkto, err := source.Getxattr(ctx, gfid, LinktoKey(instance))
	if err != nil {
		if errno, ok := asErrno(err); ok && (errno.IsMissingDir() || errno == Errno(unix.ENODATA)) {
			// Step 2: absent (no such xattr, or no such file) — some
			// other layer is migrating this file.
			inode.ClearMigration()
			return ErrNotMyLayer
		}
		return err
	}

	dest := reg.ByName(string(linkto))
	if dest == nil {
		return ErrNotMyLayer
	}

	// Step 3: confirm the gfid matches on the destination; a mismatch is
	// a fatal integrity violation.
	destDirent, err := dest.LookupByGfid(ctx, gfid)
	if err != nil {
		return err
	}
	if destDirent.Gfid != gfid {
		return &GfidMismatchError{Expected: gfid, Got: destDirent.Gfid}
	}

	// Step 4: update the inode's cached subvolume and migration info
	// while holding the inode lock (both setters below take it
	// internally), then step 5 reopens every open fd on this inode.
	inode.SetCachedSubvol(dest.Index())
	inode.ClearMigration()

	if err := reopenDescriptors(ctx, inode, gfid, dest); err != nil {
		return err
	}

	return nil
}

// MigrationInProgressCheck is scheduled when a FOP observes the
// migration-underway mode-bit pattern. It installs a fresh MigrationInfo
// and reopens descriptors on the destination so subsequent FOPs can
// redirect there.
func MigrationInProgressCheck(ctx context.Context, inode *InodeCtx, gfid string, src, dst Subvolume) error {
	inode.SetMigration(NewMigrationInfo(src.Index(), dst.Index()))
	return reopenDescriptors(ctx, inode, gfid, dst)
}

// reopenDescriptors walks every fd open on inode and reopens each on
// dest. The inode lock is held only while
// snapshotting the fd list (InodeCtx.snapshotFds already does this and
// releases it before returning); each reopen itself runs with no inode
// lock held, using the root identity scoped guard from package syncop
// since this runs on behalf of the rebalancer rather than the original
// caller.
//
// Reopening an fd already on dest is detected and skipped, so retries
// are idempotent.
func reopenDescriptors(ctx context.Context, inode *InodeCtx, gfid string, dest Subvolume) error {
	for _, fd := range inode.snapshotFds() {
		if fd.Subvol() == dest.Index() {
			continue
		}

		restore := syncop.AsRoot()
		h, err := dest.Open(ctx, gfid, reopenFlags(fd.flags))
		restore()

		if err != nil {
			if errno, ok := asErrno(err); ok && errno.IsMissingDir() {
				// Benign: a racing newer migration already moved this file
				// again.
				continue
			}
			return err
		}
		fd.Rebind(dest.Index(), h)
	}
	return nil
}

func asErrno(err error) (Errno, bool) {
	var errno Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
