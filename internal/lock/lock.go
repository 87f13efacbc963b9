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

// Package lock implements the two multi-subvolume locking primitives
// the self-healer needs: inodelk and entrylk, each
// with blocking and non-blocking variants, plus the combined
// inodelk-then-entrylk "namespace protocol".
package lock

import (
	"context"
	"sort"

	"github.com/gluster/glusterfs-sub024/internal/dht"
)

// Domain tags used by the core.
const (
	DomainLayoutHeal = "LAYOUT_HEAL"
	DomainEntrySync  = "ENTRY_SYNC"
)

// Backend is the single-subvolume lock primitive the Acquire*/Release*
// functions compose into the multi-subvolume protocol. dht.Subvolume satisfies it
// directly; tests may supply a narrower fake.
type Backend interface {
	InodeLock(ctx context.Context, req dht.BackendLockRequest) error
	InodeUnlock(ctx context.Context, req dht.BackendLockRequest) error
	EntryLock(ctx context.Context, req dht.BackendLockRequest) error
	EntryUnlock(ctx context.Context, req dht.BackendLockRequest) error
}

// Request is the (subvolume, inode/loc, type, domain, optional
// basename, failure-policy) tuple "Lock Request".
type Request struct {
	SubvolName string
	Subvol     Backend
	Gfid       string
	Domain     string
	Basename   string // set only for entrylk
	Type       dht.LockType
	Policy     dht.FailurePolicy
	Owner      string

	locked bool
}

// sortKey implements the (subvolume_name, inode_gfid) lexicographic sort
// required before any acquisition, to make cluster-wide
// lock ordering deadlock-free.
func sortKey(r Request) (string, string) { return r.SubvolName, r.Gfid }

// Sort orders reqs by (subvolume_name, gfid) in place. Every participant
// using the same sort on the same domains acquires in the same order,
// so cycles are impossible.
func Sort(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		ai, aj := sortKey(reqs[i]), sortKey(reqs[j])
		if ai != aj {
			return ai < aj
		}
		return false
	})
}

func toBackendReq(r Request) dht.BackendLockRequest {
	return dht.BackendLockRequest{
		Gfid:     r.Gfid,
		Domain:   r.Domain,
		Basename: r.Basename,
		Write:    r.Type == dht.LockWrite,
		Owner:    r.Owner,
	}
}

func ignorable(err error, policy dht.FailurePolicy) bool {
	if err == nil {
		return false
	}
	if policy != dht.IgnoreENOENTESTALE {
		return false
	}
	if errno, ok := err.(dht.Errno); ok {
		return errno.IsMissingDir()
	}
	return false
}

// AcquireInodelk sends a sequential blocking inodelk across a sorted
// array of requests.
// On any non-ignorable failure it unwinds every lock it had acquired, in
// reverse, and returns the original error — but if every
// request was ignore-policy-skipped (none actually marked locked), a
// final success is reported as the original errno so the caller can
// treat the section as a no-op.
func AcquireInodelk(ctx context.Context, reqs []Request) error {
	Sort(reqs)
	return acquireSequential(ctx, reqs, func(b Backend, ctx context.Context, br dht.BackendLockRequest) error {
		return b.InodeLock(ctx, br)
	}, func(b Backend, ctx context.Context, br dht.BackendLockRequest) error {
		return b.InodeUnlock(ctx, br)
	})
}

// ReleaseInodelk unlocks every request marked locked, in reverse order.
func ReleaseInodelk(ctx context.Context, reqs []Request) {
	releaseReverse(ctx, reqs, func(b Backend, ctx context.Context, br dht.BackendLockRequest) error {
		return b.InodeUnlock(ctx, br)
	})
}

// AcquireEntrylk and ReleaseEntrylk are AcquireInodelk/ReleaseInodelk's
// twins for the entry-level primitive.
func AcquireEntrylk(ctx context.Context, reqs []Request) error {
	Sort(reqs)
	return acquireSequential(ctx, reqs, func(b Backend, ctx context.Context, br dht.BackendLockRequest) error {
		return b.EntryLock(ctx, br)
	}, func(b Backend, ctx context.Context, br dht.BackendLockRequest) error {
		return b.EntryUnlock(ctx, br)
	})
}

func ReleaseEntrylk(ctx context.Context, reqs []Request) {
	releaseReverse(ctx, reqs, func(b Backend, ctx context.Context, br dht.BackendLockRequest) error {
		return b.EntryUnlock(ctx, br)
	})
}

func acquireSequential(
	ctx context.Context,
	reqs []Request,
	lockFn func(Backend, context.Context, dht.BackendLockRequest) error,
	unlockFn func(Backend, context.Context, dht.BackendLockRequest) error,
) error {
	var firstErr error
	anyLocked := false

	for i := range reqs {
		err := lockFn(reqs[i].Subvol, ctx, toBackendReq(reqs[i]))
		if err == nil {
			reqs[i].locked = true
			anyLocked = true
			continue
		}
		if ignorable(err, reqs[i].Policy) {
			// Treated as success without marking locked; the self-healer
			// races benignly with a concurrent rmdir.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		// Hard failure: clean up everything acquired so far, in reverse.
		for j := i - 1; j >= 0; j-- {
			if reqs[j].locked {
				_ = unlockFn(reqs[j].Subvol, ctx, toBackendReq(reqs[j]))
				reqs[j].locked = false
			}
		}
		return err
	}

	if !anyLocked && firstErr != nil {
		// Every entry was ignore-policy-skipped: report the original
		// errno so the caller can treat the whole section as a no-op.
		return firstErr
	}
	return nil
}

func releaseReverse(
	ctx context.Context,
	reqs []Request,
	unlockFn func(Backend, context.Context, dht.BackendLockRequest) error,
) {
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].locked {
			_ = unlockFn(reqs[i].Subvol, ctx, toBackendReq(reqs[i]))
			reqs[i].locked = false
		}
	}
}

// AcquireInodelkNonBlocking fans out all N requests in parallel and, if
// any fails (other than the ignore-policy cases), unwinds whichever
// succeeded.
func AcquireInodelkNonBlocking(ctx context.Context, reqs []Request) error {
	Sort(reqs)
	type result struct {
		idx int
		err error
	}
	results := make(chan result, len(reqs))
	for i := range reqs {
		go func(i int) {
			err := reqs[i].Subvol.InodeLock(ctx, toBackendReq(reqs[i]))
			results <- result{i, err}
		}(i)
	}

	var firstErr, hardErr error
	anyLocked := false
	for range reqs {
		r := <-results
		if r.err == nil {
			reqs[r.idx].locked = true
			anyLocked = true
			continue
		}
		if ignorable(r.err, reqs[r.idx].Policy) {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if hardErr == nil {
			hardErr = r.err
		}
	}

	if hardErr != nil {
		ReleaseInodelk(ctx, reqs)
		return hardErr
	}
	if !anyLocked && firstErr != nil {
		return firstErr
	}
	return nil
}
