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
	"fmt"
	"sort"
)

// CommitHashInvalid marks "layout is in flux, do not trust for readdir
// optimization".
const CommitHashInvalid uint32 = 0xFFFFFFFF

// Segment binds one contiguous, inclusive hash range [Start, Stop] to a
// single subvolume within a Layout.
type Segment struct {
	Start, Stop uint32
	SubvolIndex int
	Err         Errno
}

// IsZeroRange reports invariant (4): Start == Stop means this subvolume
// holds directory metadata but no file-placement share.
func (s Segment) IsZeroRange() bool { return s.Start == s.Stop }

// contains reports whether hash h falls within this segment's range.
func (s Segment) contains(h uint32) bool { return h >= s.Start && h <= s.Stop }

// Layout is a per-directory hash-range map: an ordered sequence of
// segments plus the volume-wide commit_hash repeated on every segment.
type Layout struct {
	Segments   []Segment
	CommitHash uint32
}

// clone returns a deep copy safe to mutate independently; a Layout is
// shared/ref-counted once published, so every
// mutator in this package operates on a clone rather than the original.
func (l *Layout) clone() *Layout {
	out := &Layout{CommitHash: l.CommitHash, Segments: make([]Segment, len(l.Segments))}
	copy(out.Segments, l.Segments)
	return out
}

// Search implements hashed-subvolume lookup: compute
// hash(name) and return the subvolume index of the unique segment whose
// range contains it. A hole (no covering segment) is reported as an
// error rather than silently falling back, so callers can distinguish
// "needs heal" from "found".
func (l *Layout) Search(name string) (int, error) {
	if l == nil || len(l.Segments) == 0 {
		return 0, fmt.Errorf("dht: layout search on empty layout for %q", name)
	}
	h := HashName(name)
	return l.SearchHash(h)
}

// SearchHash is Search with a pre-computed hash, used directly by tests
// asserting boundary behaviors at segment edges.
func (l *Layout) SearchHash(h uint32) (int, error) {
	for _, seg := range l.Segments {
		if seg.Err != ErrnoNone {
			continue
		}
		if seg.contains(h) {
			return seg.SubvolIndex, nil
		}
	}
	return 0, fmt.Errorf("dht: hash 0x%08x falls in a layout hole", h)
}

// AnomalyCounts is the sole input to the self-heal decision: counts
// of each category of malformed layout segment.
type AnomalyCounts struct {
	Holes, Overlaps, Missing, Down, Misc int
}

// NeedsHeal reports trigger condition.
func (a AnomalyCounts) NeedsHeal() bool {
	return a.Holes+a.Overlaps > 0 || a.Missing > 0
}

// Anomalies computes hole/overlap/missing/down/misc counts in one pass
// over the layout's segments.
func (l *Layout) Anomalies() AnomalyCounts {
	var a AnomalyCounts

	var covering []Segment
	for _, seg := range l.Segments {
		switch {
		case seg.Err == ErrnoNone:
			if !seg.IsZeroRange() {
				covering = append(covering, seg)
			}
		case seg.Err == ErrnoUnset:
			a.Holes++
		case seg.Err.IsMissingDir():
			a.Missing++
		case seg.Err.IsDown():
			a.Down++
		default:
			a.Misc++
		}
	}

	sort.Slice(covering, func(i, j int) bool { return covering[i].Start < covering[j].Start })

	var expect uint32
	haveExpect := true
	for i, seg := range covering {
		if haveExpect {
			if seg.Start > expect {
				a.Holes++
			} else if seg.Start < expect {
				a.Overlaps++
			}
		}
		expect = seg.Stop
		haveExpect = true
		if i == len(covering)-1 && seg.Stop != 0xFFFFFFFF {
			a.Holes++
		}
		if seg.Stop != 0xFFFFFFFF {
			expect = seg.Stop + 1
		}
	}
	if len(covering) == 0 {
		a.Holes++
	} else if covering[0].Start != 0 {
		a.Holes++
	}

	return a
}

// LayoutSpan counts the segments that hold a real, error-free,
// non-zero hash range. Comparing span against the participant count is
// the cheap topology-change signal ShouldFixLayout uses.
func (l *Layout) LayoutSpan() int {
	span := 0
	for _, seg := range l.Segments {
		if seg.Err != ErrnoNone {
			continue
		}
		if !seg.IsZeroRange() {
			span++
		}
	}
	return span
}

// DistributionType classifies a layout as Equal (every range the same
// width, the common case) or Weighted (ranges deliberately sized by
// subvolume capacity). A layout whose shape flips between the two
// needs a rewrite even when it is otherwise anomaly-free.
type DistributionType int

const (
	EqualDistribution DistributionType = iota
	WeightedDistribution
)

// DistributionType reports which of the two shapes l has, by
// comparing every range's width against the first range's width: a
// width that differs by more than the segment count flags a weighted
// layout.
func (l *Layout) DistributionType() DistributionType {
	var startRange uint32
	for _, seg := range l.Segments {
		width := seg.Stop - seg.Start
		if startRange == 0 {
			startRange = width
			continue
		}
		var diff uint32
		if width >= startRange {
			diff = width - startRange
		} else {
			diff = startRange - width
		}
		if width != 0 && diff > uint32(len(l.Segments)) {
			return WeightedDistribution
		}
	}
	return EqualDistribution
}

// ShouldFixLayout decides whether an on-disk layout actually needs a
// phase-6 rewrite. A down or misclassified segment makes a rewrite
// unsafe to attempt, so it is declined rather than forced. Holes and
// overlaps always need a rewrite. Otherwise a layout whose commit_hash
// already matches the freshly computed candidate, that carries no
// decommissioned bricks, and whose span and distribution shape already
// match the participant set is left alone; rewriting it would only
// mint a needless new commit_hash and bounce every subvolume's xattr.
func ShouldFixLayout(observed, candidate *Layout, participantCount, decommissionedInLayout int) bool {
	if observed == nil || len(observed.Segments) == 0 {
		return true
	}
	a := observed.Anomalies()
	if a.Down > 0 || a.Misc > 0 {
		return false
	}
	if a.Holes > 0 || a.Overlaps > 0 {
		return true
	}
	if observed.CommitHash != candidate.CommitHash {
		return true
	}
	if decommissionedInLayout > 0 {
		return true
	}
	if observed.LayoutSpan() != participantCount {
		return true
	}
	if observed.DistributionType() != candidate.DistributionType() {
		return true
	}
	return false
}

// Weigher returns the placement weight for a subvolume. A nil Weigher
// passed to AssignLayout means "uniform weight": if per-subvolume disk
// capacity stats are available and distinct, weight = chunks(subvol);
// otherwise every subvolume gets equal weight.
type Weigher func(Subvolume) int

// AssignLayout computes a brand-new layout over participants.
// rotationSeed is hashed to pick the rotation start index (the
// directory gfid, or its path when randomize_by_gfid is off).
// spreadCount, when in (0, len(participants)), limits how many
// subvolumes receive a non-zero range; the rest get zero-range
// placeholders.
func AssignLayout(participants []Subvolume, weigh Weigher, rotationSeed string, spreadCount int, commitHash uint32) (*Layout, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if weigh == nil {
		weigh = func(Subvolume) int { return 1 }
	}

	n := len(participants)
	start := int(HashName(rotationSeed) % uint32(n))
	rotated := make([]Subvolume, n)
	for i := 0; i < n; i++ {
		rotated[i] = participants[(start+i)%n]
	}

	effective := spreadCount
	if effective <= 0 || effective > n {
		effective = n
	}

	var totalWeight uint64
	for _, sub := range rotated[:effective] {
		w := weigh(sub)
		if w <= 0 {
			w = 1
		}
		totalWeight += uint64(w)
	}
	chunkSize := (uint64(1) << 32) / totalWeight

	out := &Layout{CommitHash: commitHash}
	var cursor uint64
	for i, sub := range rotated[:effective] {
		w := weigh(sub)
		if w <= 0 {
			w = 1
		}
		segStart := uint32(cursor)
		size := uint64(w) * chunkSize
		cursor += size
		var segStop uint32
		if i == effective-1 {
			segStop = 0xFFFFFFFF
		} else {
			segStop = uint32(cursor - 1)
		}
		out.Segments = append(out.Segments, Segment{Start: segStart, Stop: segStop, SubvolIndex: sub.Index()})
	}
	for _, sub := range rotated[effective:] {
		out.Segments = append(out.Segments, Segment{Start: 0, Stop: 0, SubvolIndex: sub.Index()})
	}

	return out, nil
}

// alignBySubvolume returns copies of a and b reordered (and, for
// missing entries, padded with a zero-range placeholder) so that
// result_a[i] and result_b[i] always name the same SubvolIndex. This is
// the precondition FixLayout's overlap matrix needs.
func alignBySubvolume(a, b *Layout) ([]Segment, []Segment) {
	idxSet := map[int]bool{}
	for _, s := range a.Segments {
		idxSet[s.SubvolIndex] = true
	}
	for _, s := range b.Segments {
		idxSet[s.SubvolIndex] = true
	}
	idxs := make([]int, 0, len(idxSet))
	for idx := range idxSet {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	find := func(l *Layout, idx int) Segment {
		for _, s := range l.Segments {
			if s.SubvolIndex == idx {
				return s
			}
		}
		return Segment{Start: 0, Stop: 0, SubvolIndex: idx}
	}

	outA := make([]Segment, len(idxs))
	outB := make([]Segment, len(idxs))
	for i, idx := range idxs {
		outA[i] = find(a, idx)
		outB[i] = find(b, idx)
	}
	return outA, outB
}

// overlapSize returns the number of hash values two segments' ranges
// share. Zero-range segments (placeholders, or the canonical (0,0)
// "unassigned" marker) never overlap anything — otherwise every
// placeholder would spuriously "overlap" whichever segment covers hash
// 0.
func overlapSize(a, b Segment) uint64 {
	if a.IsZeroRange() || b.IsZeroRange() {
		return 0
	}
	lo := a.Start
	if b.Start > lo {
		lo = b.Start
	}
	hi := a.Stop
	if b.Stop < hi {
		hi = b.Stop
	}
	if lo > hi {
		return 0
	}
	return uint64(hi) - uint64(lo) + 1
}

// FixLayout computes an in-place layout refresh that preserves
// placement as much as possible against old, via a greedy
// overlap-maximizing swap. Both inputs must describe layouts whose
// union of subvolumes is the same set FixLayout will return a layout
// over (AssignLayout's output already satisfies this when called with
// the same decommission-filtered participant set old was computed
// from, plus any newly added subvolumes).
//
// This is O(N^2) on subvolume count, which is fine for realistic
// cluster sizes.
func FixLayout(old, proposedNew *Layout) *Layout {
	alignedNew, alignedOld := alignBySubvolume(proposedNew, old)
	k := len(alignedNew)

	m := make([][]uint64, k)
	for i := range m {
		m[i] = make([]uint64, k)
		for j := range m[i] {
			m[i][j] = overlapSize(alignedNew[i], alignedOld[j])
		}
	}

	for i := 0; i < k; i++ {
		bestJ := -1
		var bestGain int64
		for j := i + 1; j < k; j++ {
			before := int64(m[i][i]) + int64(m[j][j])
			after := int64(m[j][i]) + int64(m[i][j])
			gain := after - before
			if gain > bestGain {
				bestGain = gain
				bestJ = j
			}
		}
		if bestJ >= 0 {
			j := bestJ
			// Swap the range portion of the layout entry (not the
			// subvolume identity, which stays pinned to position i/j).
			alignedNew[i].Start, alignedNew[j].Start = alignedNew[j].Start, alignedNew[i].Start
			alignedNew[i].Stop, alignedNew[j].Stop = alignedNew[j].Stop, alignedNew[i].Stop
			alignedNew[i].Err, alignedNew[j].Err = alignedNew[j].Err, alignedNew[i].Err
			m[i], m[j] = m[j], m[i]
		}
	}

	out := &Layout{CommitHash: proposedNew.CommitHash, Segments: alignedNew}
	return out
}

// RetainedFraction computes the fraction of the hash space whose
// subvolume assignment is unchanged between old and candidate.
func RetainedFraction(old, candidate *Layout) float64 {
	alignedNew, alignedOld := alignBySubvolume(candidate, old)
	var retained uint64
	for i := range alignedNew {
		retained += overlapSize(alignedNew[i], alignedOld[i])
	}
	return float64(retained) / float64(uint64(1)<<32)
}
