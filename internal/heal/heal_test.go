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

package heal_test

import (
	"context"
	"testing"

	"github.com/gluster/glusterfs-sub024/internal/dht"
	"github.com/gluster/glusterfs-sub024/internal/dht/dhtfake"
	"github.com/gluster/glusterfs-sub024/internal/heal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(names ...string) (*dht.Registry, []*dhtfake.Subvolume) {
	reg := dht.NewRegistry()
	subs := make([]*dhtfake.Subvolume, len(names))
	for i, name := range names {
		s := dhtfake.New(name, i)
		reg.Add(s)
		subs[i] = s
	}
	return reg, subs
}

func TestHealRunCreatesMissingDirectoryAndWritesLayout(t *testing.T) {
	reg, subs := newTestRegistry("brick-0", "brick-1")
	subs[0].SeedDir(dht.RootGfid, "photos", "gfid-photos")
	// brick-1 never got the mkdir.

	e := heal.NewEngine(reg)
	result, err := e.Run(context.Background(), dht.RootGfid, "photos", "gfid-photos", nil)
	require.NoError(t, err)

	assert.Contains(t, result.Created, "brick-1")
	require.NotNil(t, result.Layout)
	assert.Len(t, result.Layout.Segments, 2)
	assert.False(t, result.Layout.Anomalies().NeedsHeal())

	_, err = subs[1].LookupByGfid(context.Background(), "gfid-photos")
	assert.NoError(t, err)
}

func TestHealRunIsIdempotentOnASecondPass(t *testing.T) {
	reg, subs := newTestRegistry("brick-0", "brick-1")
	subs[0].SeedDir(dht.RootGfid, "photos", "gfid-photos")

	e := heal.NewEngine(reg)
	ctx := context.Background()
	first, err := e.Run(ctx, dht.RootGfid, "photos", "gfid-photos", nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.Created)

	setxattrBefore := subs[0].SetxattrCallCount() + subs[1].SetxattrCallCount()

	second, err := e.Run(ctx, dht.RootGfid, "photos", "gfid-photos", first.Layout)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.False(t, second.Layout.Anomalies().NeedsHeal())
	assert.Equal(t, first.Layout.CommitHash, second.Layout.CommitHash)

	setxattrAfter := subs[0].SetxattrCallCount() + subs[1].SetxattrCallCount()
	assert.Equal(t, setxattrBefore, setxattrAfter, "re-healing an already-healed directory must not issue any setxattr")
}

func TestFixLayoutOnlySkipsMkdirPhase(t *testing.T) {
	reg, subs := newTestRegistry("brick-0", "brick-1")
	subs[0].SeedDir(dht.RootGfid, "photos", "gfid-photos")
	// brick-1 has no copy; FixLayoutOnly must not create one.

	e := heal.NewEngine(reg)
	result, err := e.FixLayoutOnly(context.Background(), dht.RootGfid, "photos", "gfid-photos", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)

	_, err = subs[1].LookupByGfid(context.Background(), "gfid-photos")
	assert.Error(t, err)
}

func TestHealRunPropagatesDivergentAttributes(t *testing.T) {
	reg, subs := newTestRegistry("brick-0", "brick-1")
	subs[0].SeedDir(dht.RootGfid, "photos", "gfid-photos")
	subs[1].SeedDir(dht.RootGfid, "photos", "gfid-photos")

	before, err := subs[0].LookupByGfid(context.Background(), "gfid-photos")
	require.NoError(t, err)
	require.NoError(t, subs[0].Setattr(context.Background(), "gfid-photos", 1000, 1000, 0750, before.Atime, before.Mtime))

	e := heal.NewEngine(reg)
	_, err = e.Run(context.Background(), dht.RootGfid, "photos", "gfid-photos", nil)
	require.NoError(t, err)

	d1, err := subs[1].LookupByGfid(context.Background(), "gfid-photos")
	require.NoError(t, err)
	assert.Equal(t, uint32(0750), d1.Mode)
}

func TestHealRunNoParticipants(t *testing.T) {
	reg := dht.NewRegistry()
	e := heal.NewEngine(reg)
	_, err := e.Run(context.Background(), dht.RootGfid, "photos", "gfid-photos", nil)
	assert.ErrorIs(t, err, dht.ErrNoParticipants)
}

func TestUpdateCommitHashRewritesEverySegmentInPlace(t *testing.T) {
	reg, subs := newTestRegistry("brick-0", "brick-1")
	subs[0].SeedDir(dht.RootGfid, "photos", "gfid-photos")
	subs[1].SeedDir(dht.RootGfid, "photos", "gfid-photos")

	e := heal.NewEngine(reg)
	ctx := context.Background()
	first, err := e.Run(ctx, dht.RootGfid, "photos", "gfid-photos", nil)
	require.NoError(t, err)

	const bumped = uint32(0xABCDEF01)
	require.NoError(t, e.UpdateCommitHash(ctx, "gfid-photos", bumped))

	for _, sub := range subs {
		dirent, err := sub.LookupByGfid(ctx, "gfid-photos")
		require.NoError(t, err)
		raw, ok := dirent.Xattrs[dht.LayoutXattrKey]
		require.True(t, ok)
		seg, commitHash, err := dht.DecodeLayoutRecord(raw)
		require.NoError(t, err)
		assert.Equal(t, bumped, commitHash)

		var want dht.Segment
		for _, s := range first.Layout.Segments {
			if s.SubvolIndex == sub.Index() {
				want = s
			}
		}
		assert.Equal(t, want.Start, seg.Start)
		assert.Equal(t, want.Stop, seg.Stop)
	}
}

func TestUpdateCommitHashNoParticipants(t *testing.T) {
	reg := dht.NewRegistry()
	e := heal.NewEngine(reg)
	err := e.UpdateCommitHash(context.Background(), "gfid-photos", 1)
	assert.ErrorIs(t, err, dht.ErrNoParticipants)
}
