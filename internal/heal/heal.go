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

// Package heal implements the directory self-heal / fix-layout engine:
// bringing a directory to a consistent state across every subvolume and
// installing a well-formed layout, under the two-phase namespace lock
// from package lock.
package heal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/gluster/glusterfs-sub024/internal/dht"
	"github.com/gluster/glusterfs-sub024/internal/lock"
	"github.com/gluster/glusterfs-sub024/internal/metrics"
)

// quotaXattrPrefixes lists the non-user.* keys that still ride along with
// the non-layout xattr heal in phase 5.
var quotaXattrPrefixes = []string{"trusted.glusterfs.quota.", "trusted.glusterfs.quota-size"}

func isHealableXattr(key string) bool {
	if strings.HasPrefix(key, "user.") {
		return true
	}
	for _, p := range quotaXattrPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Engine owns the registry and weighing policy self-heal needs to
// recompute layouts; it carries no per-directory state.
type Engine struct {
	Registry *dht.Registry
	Weigher  dht.Weigher

	// SpreadCount limits how many subvolumes receive a non-zero layout
	// range on a fresh assignment; 0 means "all participants".
	SpreadCount int

	// RootAttrs is the distinguished pre-heal attribute snapshot used for
	// the root directory instead of any single subvolume's observation,
	// per the root special case.
	RootAttrs dht.Dirent

	// Metrics records heal-run outcomes and durations. A nil Metrics is a
	// safe no-op.
	Metrics *metrics.Registry
}

// NewEngine builds an Engine with the conventional root mode.
func NewEngine(reg *dht.Registry) *Engine {
	return &Engine{
		Registry: reg,
		RootAttrs: dht.Dirent{
			Gfid: dht.RootGfid,
			Mode: 0755,
		},
	}
}

// perSubvolObservation is what phase 2 gathers about one subvolume's copy
// of the directory.
type perSubvolObservation struct {
	sub    dht.Subvolume
	dirent dht.Dirent
	err    error
}

// Result summarizes one heal run for callers that log or test against it.
type Result struct {
	PreHeal  dht.AnomalyCounts
	Layout   *dht.Layout
	Created  []string // subvolume names mkdir'd during phase 3
	MDS      string
}

// Run executes the full seven-phase heal on the directory named name
// under parentGfid, whose canonical gfid is dirGfid. currentLayout is the
// caller's best existing layout snapshot for the parent-relative hashed
// subvolume choice in phase 1; it may be nil.
func (e *Engine) Run(ctx context.Context, parentGfid, name, dirGfid string, currentLayout *dht.Layout) (*Result, error) {
	return e.run(ctx, parentGfid, name, dirGfid, currentLayout, true)
}

// FixLayoutOnly runs phases 1, 2, and 6 — lock, refresh, and rewrite the
// layout xattr via the overlap-maximizing assignment — skipping the
// mkdir, attribute, and non-layout-xattr heal phases.
func (e *Engine) FixLayoutOnly(ctx context.Context, parentGfid, name, dirGfid string, currentLayout *dht.Layout) (*Result, error) {
	return e.run(ctx, parentGfid, name, dirGfid, currentLayout, false)
}

func (e *Engine) run(ctx context.Context, parentGfid, name, dirGfid string, currentLayout *dht.Layout, full bool) (result *Result, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		e.Metrics.ObserveHealRun(outcome, time.Since(start))
	}()

	owner := uuid.NewString()
	subs := e.Registry.All()
	if len(subs) == 0 {
		return nil, dht.ErrNoParticipants
	}

	hashedSub := e.hashedSubvolume(currentLayout, name)
	if hashedSub == nil {
		return nil, dht.ErrNoParticipants
	}

	// Phase 1: namespace lock acquisition. Write inodelk on every
	// subvolume first, then a write entrylk on the hashed subvolume,
	// strictly in that order.
	inodeReqs := make([]lock.Request, len(subs))
	for i, sub := range subs {
		inodeReqs[i] = lock.Request{
			SubvolName: sub.Name(),
			Subvol:     sub,
			Gfid:       dirGfid,
			Domain:     lock.DomainLayoutHeal,
			Type:       dht.LockWrite,
			Policy:     dht.FailOnAnyError,
			Owner:      owner,
		}
	}
	if err := lock.AcquireInodelk(ctx, inodeReqs); err != nil {
		return nil, fmt.Errorf("heal: namespace inodelk: %w", err)
	}

	entryReqs := []lock.Request{{
		SubvolName: hashedSub.Name(),
		Subvol:     hashedSub,
		Gfid:       parentGfid,
		Basename:   name,
		Domain:     lock.DomainEntrySync,
		Type:       dht.LockWrite,
		Policy:     dht.FailOnAnyError,
		Owner:      owner,
	}}
	if err := lock.AcquireEntrylk(ctx, entryReqs); err != nil {
		lock.ReleaseInodelk(ctx, inodeReqs)
		return nil, fmt.Errorf("heal: namespace entrylk on %s: %w", name, err)
	}

	// Phase 7 always runs on every exit path once phase 1 has succeeded.
	defer func() {
		lock.ReleaseEntrylk(ctx, entryReqs)
		lock.ReleaseInodelk(ctx, inodeReqs)
	}()

	// Phase 2: layout refresh.
	observations := e.observe(ctx, subs, dirGfid)
	observedLayout, preHeal := mergeObservations(observations)

	result = &Result{PreHeal: preHeal}

	if full {
		// Phase 3: directory creation where missing.
		for _, obs := range observations {
			if obs.err == nil {
				continue
			}
			errno, ok := obs.err.(dht.Errno)
			if !ok || !errno.IsMissingDir() {
				// A non-missing-dir error (e.g. a down subvolume) aborts
				// heal cleanly; the triggering lookup still returns its
				// pre-heal result per the propagation policy.
				return result, fmt.Errorf("heal: phase 3 observe %s: %w", obs.sub.Name(), obs.err)
			}
			mode := uint32(0755)
			if dirGfid == dht.RootGfid {
				mode = e.RootAttrs.Mode
			}
			_, mkErr := obs.sub.Mkdir(ctx, parentGfid, name, dirGfid, mode)
			if mkErr != nil {
				if errno, ok := mkErr.(dht.Errno); !ok || errno != dht.Errno(unix.EEXIST) {
					return result, fmt.Errorf("heal: phase 3 mkdir on %s: %w", obs.sub.Name(), mkErr)
				}
			}
			result.Created = append(result.Created, obs.sub.Name())
		}

		// Re-observe attributes/xattrs after any mkdir, since a freshly
		// created directory has no prior dirent to compare.
		observations = e.observe(ctx, subs, dirGfid)

		// Phase 4: attribute heal.
		mdsIdx, mdsOK := mdsFromObservations(observations)
		source := e.attrSource(dirGfid, observations, mdsIdx, mdsOK)
		if attrsDisagree(observations) {
			for _, obs := range observations {
				if obs.err != nil {
					continue
				}
				if err := obs.sub.Setattr(ctx, dirGfid, source.UID, source.GID, source.Mode, source.Atime, source.Mtime); err != nil {
					return result, fmt.Errorf("heal: phase 4 setattr on %s: %w", obs.sub.Name(), err)
				}
			}
		}

		// Phase 5: non-layout xattr heal, MDS-driven.
		if mdsOK {
			mdsSub := e.Registry.Get(mdsIdx)
			if mdsSub != nil {
				result.MDS = mdsSub.Name()
				xattrs, err := mdsSub.ListXattr(ctx, dirGfid)
				if err == nil {
					for _, obs := range observations {
						if obs.err != nil || obs.sub.Index() == mdsIdx {
							continue
						}
						for k, v := range xattrs {
							if !isHealableXattr(k) {
								continue
							}
							if err := obs.sub.Setxattr(ctx, dirGfid, k, v, true); err != nil {
								return result, fmt.Errorf("heal: phase 5 setxattr %s on %s: %w", k, obs.sub.Name(), err)
							}
						}
					}
					// Clear the dirty bit on MDS now that every peer has the
					// current values.
					if err := mdsSub.Setxattr(ctx, dirGfid, dht.MDSXattrKey, dht.EncodeMDS(0), true); err != nil {
						return result, fmt.Errorf("heal: phase 5 clear mds dirty bit: %w", err)
					}
				}
			}
		}
	}

	// Phase 6: layout xattr heal. dht_should_fix_layout gates whether
	// this phase does anything: a directory whose on-disk layout
	// already has no anomalies, no decommissioned bricks, a matching
	// commit_hash/span, and the same distribution shape as a freshly
	// computed candidate is left untouched rather than rewritten.
	decommissionedInLayout := e.decommissionedInLayout(observedLayout)
	candidate, err := e.tentativeLayout(observedLayout, dirGfid, decommissionedInLayout)
	if err != nil {
		return result, fmt.Errorf("heal: phase 6 compute layout: %w", err)
	}
	if dht.ShouldFixLayout(observedLayout, candidate, len(e.Registry.Participants()), decommissionedInLayout) {
		if err := e.writeLayout(ctx, subs, observedLayout, candidate, dirGfid); err != nil {
			return result, fmt.Errorf("heal: phase 6 write layout: %w", err)
		}
		result.Layout = candidate
	} else {
		result.Layout = observedLayout
	}

	return result, nil
}

func (e *Engine) hashedSubvolume(currentLayout *dht.Layout, name string) dht.Subvolume {
	if currentLayout != nil {
		if idx, err := currentLayout.Search(name); err == nil {
			if sub := e.Registry.Get(idx); sub != nil {
				return sub
			}
		}
	}
	return e.Registry.FirstUp()
}

func (e *Engine) observe(ctx context.Context, subs []dht.Subvolume, dirGfid string) []perSubvolObservation {
	out := make([]perSubvolObservation, len(subs))
	for i, sub := range subs {
		dirent, err := sub.LookupByGfid(ctx, dirGfid)
		out[i] = perSubvolObservation{sub: sub, dirent: dirent, err: err}
	}
	return out
}

// mergeObservations builds the merged layout and anomaly counts from raw
// per-subvolume observations, per phase 2.
func mergeObservations(observations []perSubvolObservation) (*dht.Layout, dht.AnomalyCounts) {
	layout := &dht.Layout{CommitHash: dht.CommitHashInvalid}
	for _, obs := range observations {
		seg := dht.Segment{SubvolIndex: obs.sub.Index()}
		switch {
		case obs.err != nil:
			if errno, ok := obs.err.(dht.Errno); ok {
				seg.Err = errno
			} else {
				seg.Err = dht.ErrnoUnset
			}
		case obs.dirent.Xattrs == nil:
			seg.Err = dht.ErrnoUnset
		default:
			raw, ok := obs.dirent.Xattrs[dht.LayoutXattrKey]
			if !ok {
				seg.Err = dht.ErrnoUnset
				break
			}
			decoded, commitHash, decErr := dht.DecodeLayoutRecord(raw)
			if decErr != nil {
				seg.Err = dht.ErrnoUnset
				break
			}
			seg.Start, seg.Stop = decoded.Start, decoded.Stop
			seg.Err = dht.ErrnoNone
			if layout.CommitHash == dht.CommitHashInvalid {
				layout.CommitHash = commitHash
			}
		}
		layout.Segments = append(layout.Segments, seg)
	}
	return layout, layout.Anomalies()
}

func mdsFromObservations(observations []perSubvolObservation) (int, bool) {
	for _, obs := range observations {
		if obs.err != nil || obs.dirent.Xattrs == nil {
			continue
		}
		raw, ok := obs.dirent.Xattrs[dht.MDSXattrKey]
		if !ok {
			continue
		}
		idx, err := dht.DecodeMDS(raw)
		if err == nil && idx != 0 {
			return idx, true
		}
	}
	return 0, false
}

func (e *Engine) attrSource(dirGfid string, observations []perSubvolObservation, mdsIdx int, mdsOK bool) dht.Dirent {
	if dirGfid == dht.RootGfid {
		return e.RootAttrs
	}
	if mdsOK {
		for _, obs := range observations {
			if obs.err == nil && obs.sub.Index() == mdsIdx {
				return obs.dirent
			}
		}
	}
	for _, obs := range observations {
		if obs.err == nil {
			return obs.dirent
		}
	}
	return dht.Dirent{}
}

func attrsDisagree(observations []perSubvolObservation) bool {
	var first *dht.Dirent
	for i := range observations {
		if observations[i].err != nil {
			continue
		}
		d := &observations[i].dirent
		if first == nil {
			first = d
			continue
		}
		if d.Mode != first.Mode || d.UID != first.UID || d.GID != first.GID {
			return true
		}
	}
	return false
}

// decommissionedInLayout counts the observed segments sitting on a
// subvolume the registry has flagged decommissioned, mirroring
// dht_decommissioned_bricks_in_layout.
func (e *Engine) decommissionedInLayout(observed *dht.Layout) int {
	if observed == nil {
		return 0
	}
	count := 0
	for _, seg := range observed.Segments {
		if e.Registry.IsDecommissioned(seg.SubvolIndex) {
			count++
		}
	}
	return count
}

// commitHashFor picks the commit_hash a tentative layout is assigned.
// commit_hash is a volume-wide value that changes only when the
// participant topology changes (a rebalance moving a brick in or out),
// not a per-invocation nonce: an observed layout that is already
// anomaly-free, carries no decommissioned brick, and spans exactly the
// current participant set keeps its commit_hash unchanged.
func (e *Engine) commitHashFor(observed *dht.Layout, participantCount, decommissionedInLayout int) uint32 {
	if observed != nil && len(observed.Segments) > 0 &&
		observed.CommitHash != dht.CommitHashInvalid &&
		decommissionedInLayout == 0 &&
		observed.LayoutSpan() == participantCount {
		a := observed.Anomalies()
		if a.Holes == 0 && a.Overlaps == 0 && a.Down == 0 && a.Misc == 0 {
			return observed.CommitHash
		}
	}
	return uint32(time.Now().UnixNano())
}

// tentativeLayout computes the phase-6 candidate, the same way for full
// heal and fix-layout: a fresh assignment, reconciled against the
// observed layout (when it has segments) to maximize retained
// placement, under a commit_hash chosen by commitHashFor.
func (e *Engine) tentativeLayout(observed *dht.Layout, dirGfid string, decommissionedInLayout int) (*dht.Layout, error) {
	participants := e.Registry.Participants()
	commitHash := e.commitHashFor(observed, len(participants), decommissionedInLayout)
	fresh, err := dht.AssignLayout(participants, e.Weigher, dirGfid, e.SpreadCount, commitHash)
	if err != nil {
		return nil, err
	}
	if observed != nil && len(observed.Segments) > 0 {
		return dht.FixLayout(observed, fresh), nil
	}
	return fresh, nil
}

// writeLayout sets the layout xattr on every subvolume whose segment or
// commit_hash actually changed, skipping any subvolume whose on-disk
// record already matches layout exactly. A subvolume on which the
// directory is missing (ENOENT/ESTALE) is skipped rather than failing
// the write.
func (e *Engine) writeLayout(ctx context.Context, subs []dht.Subvolume, observed, layout *dht.Layout, dirGfid string) error {
	byIdx := map[int]dht.Segment{}
	for _, seg := range layout.Segments {
		byIdx[seg.SubvolIndex] = seg
	}
	observedByIdx := map[int]dht.Segment{}
	if observed != nil {
		for _, seg := range observed.Segments {
			observedByIdx[seg.SubvolIndex] = seg
		}
	}
	for _, sub := range subs {
		seg, ok := byIdx[sub.Index()]
		if !ok {
			seg = dht.Segment{Start: 0, Stop: 0, SubvolIndex: sub.Index()}
		}
		if observed != nil {
			if prev, ok := observedByIdx[sub.Index()]; ok && prev.Err == dht.ErrnoNone &&
				prev.Start == seg.Start && prev.Stop == seg.Stop &&
				observed.CommitHash == layout.CommitHash {
				continue
			}
		}
		record := dht.EncodeLayoutRecord(seg, layout.CommitHash)
		if err := sub.Setxattr(ctx, dirGfid, dht.LayoutXattrKey, record, false); err != nil {
			if errno, ok := err.(dht.Errno); ok && errno.IsMissingDir() {
				continue
			}
			return err
		}
	}
	return nil
}

// UpdateCommitHash implements the rebalance-only commit-hash bump: it
// locks every participant's layout, stamps newCommitHash onto each
// observed segment in place (start/stop left untouched), writes it
// back, and unlocks. Unlike Run/FixLayoutOnly this never recomputes
// segment boundaries — it exists purely to advance the volume-wide
// commit_hash once a rebalance pass has finished moving data, per
// dht_update_commit_hash_for_layout.
func (e *Engine) UpdateCommitHash(ctx context.Context, dirGfid string, newCommitHash uint32) error {
	owner := uuid.NewString()
	participants := e.Registry.Participants()
	if len(participants) == 0 {
		return dht.ErrNoParticipants
	}

	reqs := make([]lock.Request, len(participants))
	for i, sub := range participants {
		reqs[i] = lock.Request{
			SubvolName: sub.Name(),
			Subvol:     sub,
			Gfid:       dirGfid,
			Domain:     lock.DomainLayoutHeal,
			Type:       dht.LockWrite,
			Policy:     dht.FailOnAnyError,
			Owner:      owner,
		}
	}
	if err := lock.AcquireInodelk(ctx, reqs); err != nil {
		return fmt.Errorf("heal: update commit hash inodelk: %w", err)
	}
	defer lock.ReleaseInodelk(ctx, reqs)

	observations := e.observe(ctx, participants, dirGfid)
	var firstErr error
	for _, obs := range observations {
		if obs.err != nil || obs.dirent.Xattrs == nil {
			continue
		}
		raw, ok := obs.dirent.Xattrs[dht.LayoutXattrKey]
		if !ok {
			continue
		}
		seg, commitHash, decErr := dht.DecodeLayoutRecord(raw)
		if decErr != nil {
			if firstErr == nil {
				firstErr = decErr
			}
			continue
		}
		if commitHash == newCommitHash {
			continue
		}
		record := dht.EncodeLayoutRecord(seg, newCommitHash)
		if err := obs.sub.Setxattr(ctx, dirGfid, dht.LayoutXattrKey, record, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
