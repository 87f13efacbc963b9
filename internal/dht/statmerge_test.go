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
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeDirStatsEmpty(t *testing.T) {
	assert.Equal(t, Dirent{}, MergeDirStats(nil))
}

func TestMergeDirStatsCanonicalizesSizeAndSumsBlocks(t *testing.T) {
	now := time.Now()
	replies := []Dirent{
		{Gfid: "g1", UID: 10, GID: 20, Blocks: 8, Mtime: now},
		{Gfid: "g1", UID: 99, GID: 5, Blocks: 8, Mtime: now.Add(time.Hour)},
	}
	out := MergeDirStats(replies)
	assert.Equal(t, int64(DirStatSize), out.Size)
	assert.Equal(t, int64(16), out.Blocks)
	assert.Equal(t, uint32(99), out.UID)
	assert.Equal(t, uint32(20), out.GID)
	assert.True(t, out.Mtime.Equal(now.Add(time.Hour)))
}

func TestMergeDirStatsTakesIdentityFromFirstReply(t *testing.T) {
	replies := []Dirent{
		{Gfid: "g-first", Mode: 0755},
		{Gfid: "g-second", Mode: 0700},
	}
	out := MergeDirStats(replies)
	assert.Equal(t, "g-first", out.Gfid)
	assert.Equal(t, uint32(0755), out.Mode)
}

func TestLaterTimeComparesSecondsThenNanoseconds(t *testing.T) {
	base := time.Unix(1000, 500)
	laterBySec := time.Unix(1001, 0)
	laterByNsec := time.Unix(1000, 600)

	assert.True(t, laterTime(laterBySec, base))
	assert.False(t, laterTime(base, laterBySec))
	assert.True(t, laterTime(laterByNsec, base))
}
