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
	"fmt"

	"github.com/gluster/glusterfs-sub024/internal/metrics"
	"github.com/gluster/glusterfs-sub024/internal/syncop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// RootGfid is the well-known root directory identifier.
const RootGfid = "00000000-0000-0000-0000-000000000001"

// Dispatcher is the migration-transparent FOP dispatcher: given an
// inbound FOP it selects the right subvolume(s), sends
// the operation, handles migration-related errors transparently, and
// aggregates replies.
type Dispatcher struct {
	Registry *Registry
	Contexts *ContextTable
	Runtime  *syncop.Runtime
	Instance string // translator instance name, used to build linkto keys

	// MaxReplays bounds the "replay after migration redirect" retries per
	// FOP.
	MaxReplays int

	// Cache backstops hashedSubvolume's placement hint once an inode's
	// InodeCtx has been forgotten by the upper layer but a directory is
	// still being hammered by readdir-driven lookups. Nil disables it.
	Cache *LayoutCache

	// Metrics records cache hit/miss and migration-replay counts. A nil
	// Metrics is a safe no-op.
	Metrics *metrics.Registry
}

// NewDispatcher wires a Dispatcher over reg, using rt for any
// background synctasks it schedules.
func NewDispatcher(reg *Registry, rt *syncop.Runtime, instance string) *Dispatcher {
	return &Dispatcher{
		Registry:   reg,
		Contexts:   &ContextTable{},
		Runtime:    rt,
		Instance:   instance,
		MaxReplays: 1,
	}
}

// hashedSubvolume implements subvolume-selection rule for
// operations naming a child of a directory: layout_search on the
// parent's cached layout, falling back to the first-up subvolume when
// the parent's layout is unknown.
func (d *Dispatcher) hashedSubvolume(parentGfid, name string) Subvolume {
	layout := d.layoutFor(parentGfid)
	if layout != nil {
		if idx, err := layout.Search(name); err == nil {
			if sub := d.Registry.Get(idx); sub != nil {
				return sub
			}
		}
	}
	return d.Registry.FirstUp()
}

// layoutFor returns parentGfid's best-known layout: the live InodeCtx
// snapshot if one exists, else the LayoutCache's memoized copy.
func (d *Dispatcher) layoutFor(parentGfid string) *Layout {
	if parentCtx, ok := d.Contexts.Lookup(InodeID(parentGfid)); ok {
		if l := parentCtx.Layout(); l != nil {
			return l
		}
	}
	if l, ok := d.Cache.Get(InodeID(parentGfid)); ok {
		d.Metrics.IncLayoutCacheHit()
		return l
	}
	d.Metrics.IncLayoutCacheMiss()
	return nil
}

// PublishLayout installs a freshly healed or refreshed layout on
// parentGfid's inode context and memoizes it in the cache, so a later
// lookup after the InodeCtx is forgotten still has a placement hint.
func (d *Dispatcher) PublishLayout(parentGfid string, l *Layout) {
	d.Contexts.GetOrCreate(InodeID(parentGfid)).SetLayout(l)
	d.Cache.Put(InodeID(parentGfid), l)
}

// cachedSubvolume implements the by-gfid resolution rule: the first-up
// subvolume for the root gfid, otherwise the cached subvolume from the
// inode ctx, or the first-up subvolume when none is cached.
func (d *Dispatcher) cachedSubvolume(gfid string) (Subvolume, *InodeCtx) {
	if gfid == RootGfid {
		return d.Registry.FirstUp(), d.Contexts.GetOrCreate(InodeID(gfid))
	}
	ctx := d.Contexts.GetOrCreate(InodeID(gfid))
	if idx, ok := ctx.CachedSubvol(); ok {
		if sub := d.Registry.Get(idx); sub != nil {
			return sub, ctx
		}
	}
	return d.Registry.FirstUp(), ctx
}

// Lookup resolves a child by (parent gfid, name).
// A single ESTALE from the chosen subvolume is retried once after
// dropping any stale parent-layout snapshot.
func (d *Dispatcher) Lookup(ctx context.Context, parentGfid, name string) (Dirent, Subvolume, error) {
	if hint, subvolName, ok := ParseSubvolHint(d.Instance, name); ok {
		name = hint
		if sub := d.Registry.ByName(subvolName); sub != nil {
			dirent, err := sub.Lookup(ctx, parentGfid, name)
			return dirent, sub, err
		}
	}

	sub := d.hashedSubvolume(parentGfid, name)
	if sub == nil {
		return Dirent{}, nil, ErrNoParticipants
	}

	dirent, err := sub.Lookup(ctx, parentGfid, name)
	if err != nil && isStale(err) {
		if parentCtx, ok := d.Contexts.Lookup(InodeID(parentGfid)); ok {
			parentCtx.SetLayout(nil)
		}
		d.Cache.Invalidate(InodeID(parentGfid))
		sub = d.hashedSubvolume(parentGfid, name)
		dirent, err = sub.Lookup(ctx, parentGfid, name)
	}
	return dirent, sub, err
}

func isStale(err error) bool {
	errno, ok := asErrno(err)
	return ok && errno == Errno(unix.ESTALE)
}

// Open resolves the cached subvolume for gfid and opens a descriptor,
// registering an FdCtx so later migration handling can find and reopen
// it.
func (d *Dispatcher) Open(ctx context.Context, gfid string, flags int) (*FdCtx, error) {
	sub, inodeCtx := d.cachedSubvolume(gfid)
	if sub == nil {
		return nil, ErrNoParticipants
	}
	h, err := sub.Open(ctx, gfid, flags)
	if err != nil {
		return nil, err
	}
	return NewFdCtx(inodeCtx, gfid, flags, sub.Index(), h), nil
}

// Read performs a migration-transparent read: on a migration sentinel
// from the fd's current subvolume, it suspends the read, runs
// MigrationCompleteCheck, and replays on success.
func (d *Dispatcher) Read(ctx context.Context, fd *FdCtx, gfid string, buf []byte, off int64) (int, error) {
	return d.withMigrationReplay(ctx, fd, gfid, "read", func() (int, error) {
		sub := d.Registry.Get(fd.Subvol())
		if sub == nil {
			return 0, ErrNoParticipants
		}
		return sub.Read(ctx, fd.Handle(), buf, off)
	})
}

// Write is Read's counterpart; during an in-progress migration it must
// target the destination, not the cached source, which
// falls out naturally here because reopenDescriptors already rebinds
// the fd to the destination as soon as phase 1 is observed.
func (d *Dispatcher) Write(ctx context.Context, fd *FdCtx, gfid string, buf []byte, off int64) (int, error) {
	return d.withMigrationReplay(ctx, fd, gfid, "write", func() (int, error) {
		sub := d.Registry.Get(fd.Subvol())
		if sub == nil {
			return 0, ErrNoParticipants
		}
		return sub.Write(ctx, fd.Handle(), buf, off)
	})
}

// withMigrationReplay runs op against the fd's current binding; on
// ErrFileMigrated or ErrMigrationInProgress it schedules the matching
// rebalance-coherency synctask and replays op at most MaxReplays times.
func (d *Dispatcher) withMigrationReplay(ctx context.Context, fd *FdCtx, gfid, fop string, op func() (int, error)) (int, error) {
	inodeCtx, _ := d.Contexts.Lookup(InodeID(gfid))
	if inodeCtx == nil {
		inodeCtx = d.Contexts.GetOrCreate(InodeID(gfid))
	}

	n, err := op()
	for attempt := 0; attempt < d.MaxReplays && err != nil; attempt++ {
		d.Metrics.IncMigrationReplay(fop)
		switch {
		case errors.Is(err, ErrFileMigrated):
			source := d.Registry.Get(fd.Subvol())
			if source == nil {
				return 0, ErrNoParticipants
			}
			_, terr := d.Runtime.Run(ctx, func(ctx context.Context) (int, error) {
				return 0, MigrationCompleteCheck(ctx, d.Registry, inodeCtx, d.Instance, gfid, source)
			})
			if terr != nil {
				return 0, terr
			}
		case errors.Is(err, ErrMigrationInProgress):
			if mi := inodeCtx.Migration(); mi != nil {
				src, dst := d.Registry.Get(mi.Src), d.Registry.Get(mi.Dst)
				mi.Unref()
				if src == nil || dst == nil {
					return 0, ErrNotMyLayer
				}
				_, terr := d.Runtime.Run(ctx, func(ctx context.Context) (int, error) {
					return 0, MigrationInProgressCheck(ctx, inodeCtx, gfid, src, dst)
				})
				if terr != nil {
					return 0, terr
				}
			}
		default:
			return n, err
		}
		n, err = op()
	}
	return n, err
}

// Create places a new file under parentGfid, honoring a subvolume hint
// and refusing decommissioned placement.
func (d *Dispatcher) Create(ctx context.Context, parentGfid, name, gfidReq string, mode uint32) (Dirent, error) {
	realName := name
	var sub Subvolume
	if hint, subvolName, ok := ParseSubvolHint(d.Instance, name); ok {
		realName = hint
		sub = d.Registry.ByName(subvolName)
	}
	if sub == nil {
		sub = d.hashedSubvolume(parentGfid, realName)
	}
	if sub == nil {
		return Dirent{}, ErrNoParticipants
	}
	if d.Registry.IsDecommissioned(sub.Index()) {
		alt := d.firstNonDecommissioned()
		if alt == nil {
			return Dirent{}, &DecommissionedError{Subvolume: sub.Name()}
		}
		sub = alt
	}
	return sub.Create(ctx, parentGfid, realName, gfidReq, mode)
}

func (d *Dispatcher) firstNonDecommissioned() Subvolume {
	for _, sub := range d.Registry.Participants() {
		if !d.Registry.IsDecommissioned(sub.Index()) {
			return sub
		}
	}
	return nil
}

// Mkdir creates a directory under parentGfid, honoring the same
// subvolume-hint override Create does.
func (d *Dispatcher) Mkdir(ctx context.Context, parentGfid, name, gfidReq string, mode uint32) (Dirent, error) {
	realName := name
	var sub Subvolume
	if hint, subvolName, ok := ParseSubvolHint(d.Instance, name); ok {
		realName = hint
		sub = d.Registry.ByName(subvolName)
	}
	if sub == nil {
		sub = d.hashedSubvolume(parentGfid, realName)
	}
	if sub == nil {
		return Dirent{}, ErrNoParticipants
	}
	if d.Registry.IsDecommissioned(sub.Index()) {
		alt := d.firstNonDecommissioned()
		if alt == nil {
			return Dirent{}, &DecommissionedError{Subvolume: sub.Name()}
		}
		sub = alt
	}
	return sub.Mkdir(ctx, parentGfid, realName, gfidReq, mode)
}

// Unlink removes a child, per the hashed-subvolume rule.
func (d *Dispatcher) Unlink(ctx context.Context, parentGfid, name string) error {
	sub := d.hashedSubvolume(parentGfid, name)
	if sub == nil {
		return ErrNoParticipants
	}
	return sub.Unlink(ctx, parentGfid, name)
}

// Rmdir removes a (now-empty, per upper-layer contract) directory child.
func (d *Dispatcher) Rmdir(ctx context.Context, parentGfid, name string) error {
	sub := d.hashedSubvolume(parentGfid, name)
	if sub == nil {
		return ErrNoParticipants
	}
	return sub.Rmdir(ctx, parentGfid, name)
}

// Flush and Close pass through to the fd's cached subvolume.
func (d *Dispatcher) Flush(ctx context.Context, fd *FdCtx) error {
	sub := d.Registry.Get(fd.Subvol())
	if sub == nil {
		return ErrNoParticipants
	}
	return sub.Flush(ctx, fd.Handle())
}

func (d *Dispatcher) Close(ctx context.Context, fd *FdCtx) error {
	sub := d.Registry.Get(fd.Subvol())
	if sub == nil {
		return ErrNoParticipants
	}
	return sub.Close(ctx, fd.Handle())
}

// Getxattr resolves gfid's cached subvolume and fetches key. The
// size-passthrough key is never interpreted here — it
// passes through to the backend and back to the caller opaquely, same
// as every other key; callers that care about it read it from the
// returned value themselves.
func (d *Dispatcher) Getxattr(ctx context.Context, gfid, key string) ([]byte, error) {
	sub, _ := d.cachedSubvolume(gfid)
	if sub == nil {
		return nil, ErrNoParticipants
	}
	return sub.Getxattr(ctx, gfid, key)
}

// Setxattr resolves gfid's cached subvolume and sets key. heal marks the
// write as healer-issued.
func (d *Dispatcher) Setxattr(ctx context.Context, gfid, key string, value []byte, heal bool) error {
	sub, _ := d.cachedSubvolume(gfid)
	if sub == nil {
		return ErrNoParticipants
	}
	return sub.Setxattr(ctx, gfid, key, value, heal)
}

// Rename honors the subvolume-hint glob on the destination name,
// falling back to the hashed destination subvolume.
func (d *Dispatcher) Rename(ctx context.Context, srcParent, srcName, dstParent, dstName string) error {
	realDst := dstName
	var dst Subvolume
	if hint, subvolName, ok := ParseSubvolHint(d.Instance, dstName); ok {
		realDst = hint
		dst = d.Registry.ByName(subvolName)
	}
	if dst == nil {
		dst = d.hashedSubvolume(dstParent, realDst)
	}
	src := d.hashedSubvolume(srcParent, srcName)
	if src == nil || dst == nil {
		return ErrNoParticipants
	}
	if src.Index() == dst.Index() {
		return src.Rename(ctx, srcParent, srcName, dstParent, realDst)
	}
	// Cross-subvolume rename is single-backend-enforced only: link then unlink the original.
	dirent, err := src.Lookup(ctx, srcParent, srcName)
	if err != nil {
		return err
	}
	if err := dst.Link(ctx, dirent.Gfid, dstParent, realDst); err != nil {
		return err
	}
	return src.Unlink(ctx, srcParent, srcName)
}

// FanOutDirOp implements directory-FOP fan-out: send op
// to every subvolume concurrently, merge per-child errors (first error
// wins, ENOENT suppressed if any child succeeded), and return the
// merged directory stat via MergeDirStats.
func (d *Dispatcher) FanOutDirOp(ctx context.Context, op func(context.Context, Subvolume) (Dirent, error)) (Dirent, error) {
	subs := d.Registry.All()
	replies := make([]Dirent, len(subs))
	errs := make([]error, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			d, err := op(gctx, sub)
			replies[i] = d
			errs[i] = err
			return nil // collect all; don't let errgroup short-circuit the fan-out
		})
	}
	_ = g.Wait()

	anySucceeded := false
	var firstErr error
	var okReplies []Dirent
	for i := range subs {
		if errs[i] == nil {
			anySucceeded = true
			okReplies = append(okReplies, replies[i])
			continue
		}
		if errno, ok := asErrno(errs[i]); ok && errno.IsMissingDir() && anySucceededOrWillBe(errs) {
			continue // ENOENT suppressed if any child succeeded
		}
		if firstErr == nil {
			firstErr = errs[i]
		}
	}

	if !anySucceeded {
		if firstErr == nil {
			firstErr = fmt.Errorf("dht: fan-out op failed on every subvolume")
		}
		return Dirent{}, firstErr
	}
	// A non-ENOENT error among children still surfaces even though some
	// children succeeded, per "first error wins" (ENOENT is the sole
	// suppressed case, handled in the loop above).
	return MergeDirStats(okReplies), firstErr
}

func anySucceededOrWillBe(errs []error) bool {
	for _, e := range errs {
		if e == nil {
			return true
		}
	}
	return false
}
