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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func twoWaySegments() []Segment {
	return []Segment{
		{Start: 0, Stop: 0x7FFFFFFF, SubvolIndex: 0},
		{Start: 0x80000000, Stop: 0xFFFFFFFF, SubvolIndex: 1},
	}
}

func TestLayoutSearchHashBoundaries(t *testing.T) {
	l := &Layout{Segments: twoWaySegments()}

	idx, err := l.SearchHash(0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = l.SearchHash(0x7FFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = l.SearchHash(0x80000000)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = l.SearchHash(0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestLayoutSearchHole(t *testing.T) {
	l := &Layout{Segments: []Segment{
		{Start: 0, Stop: 0x0FFFFFFF, SubvolIndex: 0},
		{Start: 0x20000000, Stop: 0xFFFFFFFF, SubvolIndex: 1},
	}}
	_, err := l.SearchHash(0x15000000)
	assert.Error(t, err)
}

func TestLayoutSearchEmptyLayout(t *testing.T) {
	l := &Layout{}
	_, err := l.Search("anything")
	assert.Error(t, err)
}

func TestAnomaliesCleanLayout(t *testing.T) {
	l := &Layout{Segments: twoWaySegments()}
	a := l.Anomalies()
	assert.False(t, a.NeedsHeal())
	assert.Zero(t, a.Holes)
	assert.Zero(t, a.Overlaps)
}

func TestAnomaliesDetectsHole(t *testing.T) {
	l := &Layout{Segments: []Segment{
		{Start: 0, Stop: 0x0FFFFFFF, SubvolIndex: 0},
		{Start: 0x20000000, Stop: 0xFFFFFFFF, SubvolIndex: 1},
	}}
	a := l.Anomalies()
	assert.Equal(t, 1, a.Holes)
	assert.True(t, a.NeedsHeal())
}

func TestAnomaliesDetectsOverlap(t *testing.T) {
	l := &Layout{Segments: []Segment{
		{Start: 0, Stop: 0x80000000, SubvolIndex: 0},
		{Start: 0x70000000, Stop: 0xFFFFFFFF, SubvolIndex: 1},
	}}
	a := l.Anomalies()
	assert.Equal(t, 1, a.Overlaps)
	assert.True(t, a.NeedsHeal())
}

func TestAnomaliesCountsMissingSegment(t *testing.T) {
	l := &Layout{Segments: []Segment{
		{SubvolIndex: 0, Err: Errno(unix.ENOENT)},
		{SubvolIndex: 1, Err: ErrnoUnset},
	}}
	a := l.Anomalies()
	assert.Equal(t, 1, a.Missing)
	assert.True(t, a.NeedsHeal())
}

type fakeSubvol struct {
	Subvolume
	name string
	idx  int
}

func (f *fakeSubvol) Name() string { return f.name }
func (f *fakeSubvol) Index() int   { return f.idx }

func TestAssignLayoutCoversFullRange(t *testing.T) {
	parts := []Subvolume{&fakeSubvol{name: "a", idx: 0}, &fakeSubvol{name: "b", idx: 1}, &fakeSubvol{name: "c", idx: 2}}
	l, err := AssignLayout(parts, nil, "seed", 0, 42)
	require.NoError(t, err)
	require.Len(t, l.Segments, 3)

	last := l.Segments[len(l.Segments)-1]
	assert.Equal(t, uint32(0xFFFFFFFF), last.Stop)
	anomalies := l.Anomalies()
	assert.False(t, anomalies.NeedsHeal())
}

func TestAssignLayoutNoParticipants(t *testing.T) {
	_, err := AssignLayout(nil, nil, "seed", 0, 0)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestAssignLayoutSpreadCountLimitsNonZeroRanges(t *testing.T) {
	parts := []Subvolume{&fakeSubvol{name: "a", idx: 0}, &fakeSubvol{name: "b", idx: 1}, &fakeSubvol{name: "c", idx: 2}}
	l, err := AssignLayout(parts, nil, "seed", 2, 0)
	require.NoError(t, err)

	var zeroRange int
	for _, seg := range l.Segments {
		if seg.IsZeroRange() {
			zeroRange++
		}
	}
	assert.Equal(t, 1, zeroRange)
}

func TestFixLayoutRetainsPlacementWhenUnchanged(t *testing.T) {
	parts := []Subvolume{&fakeSubvol{name: "a", idx: 0}, &fakeSubvol{name: "b", idx: 1}}
	old, err := AssignLayout(parts, nil, "seed", 0, 1)
	require.NoError(t, err)

	fresh, err := AssignLayout(parts, nil, "seed", 0, 2)
	require.NoError(t, err)

	fixed := FixLayout(old, fresh)
	assert.InDelta(t, 1.0, RetainedFraction(old, fixed), 0.001)
}

func TestFixLayoutAddsNewSubvolume(t *testing.T) {
	oldParts := []Subvolume{&fakeSubvol{name: "a", idx: 0}, &fakeSubvol{name: "b", idx: 1}}
	old, err := AssignLayout(oldParts, nil, "seed", 0, 1)
	require.NoError(t, err)

	newParts := append(oldParts, &fakeSubvol{name: "c", idx: 2})
	fresh, err := AssignLayout(newParts, nil, "seed", 0, 2)
	require.NoError(t, err)

	fixed := FixLayout(old, fresh)
	assert.Len(t, fixed.Segments, 3)
	assert.Greater(t, RetainedFraction(old, fixed), 0.5)
}

func TestLayoutSpanCountsNonZeroErrorFreeSegments(t *testing.T) {
	l := &Layout{Segments: []Segment{
		{Start: 0, Stop: 10, SubvolIndex: 0},
		{Start: 11, Stop: 11, SubvolIndex: 1}, // zero-range placeholder
		{Start: 12, Stop: 20, SubvolIndex: 2, Err: Errno(unix.ENOENT)},
	}}
	assert.Equal(t, 1, l.LayoutSpan())
}

func TestDistributionTypeEqualWhenRangesMatch(t *testing.T) {
	l := &Layout{Segments: twoWaySegments()}
	assert.Equal(t, EqualDistribution, l.DistributionType())
}

func TestDistributionTypeWeightedWhenRangesDivergeSharply(t *testing.T) {
	l := &Layout{Segments: []Segment{
		{Start: 0, Stop: 0x0FFFFFFF, SubvolIndex: 0},
		{Start: 0x10000000, Stop: 0xFFFFFFFF, SubvolIndex: 1},
	}}
	assert.Equal(t, WeightedDistribution, l.DistributionType())
}

func TestShouldFixLayoutTrueOnEmptyObserved(t *testing.T) {
	candidate := &Layout{Segments: twoWaySegments(), CommitHash: 1}
	assert.True(t, ShouldFixLayout(nil, candidate, 2, 0))
	assert.True(t, ShouldFixLayout(&Layout{}, candidate, 2, 0))
}

func TestShouldFixLayoutTrueWhenAnomalous(t *testing.T) {
	observed := &Layout{CommitHash: 1, Segments: []Segment{
		{Start: 0, Stop: 0x7FFFFFFF, SubvolIndex: 0},
		{Err: Errno(unix.ENOENT), SubvolIndex: 1},
	}}
	candidate := &Layout{Segments: twoWaySegments(), CommitHash: 1}
	assert.True(t, ShouldFixLayout(observed, candidate, 2, 0))
}

func TestShouldFixLayoutTrueWhenCommitHashDiffers(t *testing.T) {
	observed := &Layout{CommitHash: 1, Segments: twoWaySegments()}
	candidate := &Layout{CommitHash: 2, Segments: twoWaySegments()}
	assert.True(t, ShouldFixLayout(observed, candidate, 2, 0))
}

func TestShouldFixLayoutTrueWhenDecommissionedBrickPresent(t *testing.T) {
	observed := &Layout{CommitHash: 1, Segments: twoWaySegments()}
	candidate := &Layout{CommitHash: 1, Segments: twoWaySegments()}
	assert.True(t, ShouldFixLayout(observed, candidate, 2, 1))
}

func TestShouldFixLayoutFalseWhenClean(t *testing.T) {
	observed := &Layout{CommitHash: 1, Segments: twoWaySegments()}
	candidate := &Layout{CommitHash: 1, Segments: twoWaySegments()}
	assert.False(t, ShouldFixLayout(observed, candidate, 2, 0))
}
