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
)

func TestLayoutRecordRoundTrip(t *testing.T) {
	seg := Segment{Start: 0x10000000, Stop: 0x2FFFFFFF, SubvolIndex: 3}
	buf := EncodeLayoutRecord(seg, 0xCAFEBABE)

	decoded, commitHash, err := DecodeLayoutRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, seg.Start, decoded.Start)
	assert.Equal(t, seg.Stop, decoded.Stop)
	assert.Equal(t, uint32(0xCAFEBABE), commitHash)
}

func TestDecodeLayoutRecordRejectsBadLength(t *testing.T) {
	_, _, err := DecodeLayoutRecord([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMDSRoundTrip(t *testing.T) {
	buf := EncodeMDS(7)
	idx, err := DecodeMDS(buf)
	require.NoError(t, err)
	assert.Equal(t, 7, idx)
}

func TestLinktoKey(t *testing.T) {
	assert.Equal(t, "trusted.glusterfs.dht0.linkto", LinktoKey("dht0"))
}
