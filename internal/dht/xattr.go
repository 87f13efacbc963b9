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
	"encoding/binary"
	"fmt"
)

// Extended attribute keys persisted on the backend. These are the
// entire on-disk footprint of the translator.
const (
	LayoutXattrKey = "trusted.glusterfs.dht"
	MDSXattrKey    = "trusted.glusterfs.dht.mds"

	// SizePassthroughKey is the historical out-of-band channel used by
	// upper layers to tunnel a file size through a getxattr reply.
	SizePassthroughKey = "trusted.glusterfs.crypt.att.size"

	// AncestryPathKey requests full pathname reconstruction; the value
	// of a getxattr under this key is a full pathname, consumed by
	// ReconstructAncestryPath to relink every ancestor dentry.
	AncestryPathKey = "get-ancestry-path"
	// GfidReqKey carries a client-supplied gfid for directory creation.
	GfidReqKey = "gfid-req"
	// InternalCtxKey, when set to InternalCtxHealDir, marks an operation
	// as issued by the healer so lower layers relax gating.
	InternalCtxKey     = "GF_INTERNAL_CTX_KEY"
	InternalCtxHealDir = "GF_DHT_HEAL_DIR"

	layoutRecordVersion = 1
	layoutRecordLen     = 16
)

// LinktoKey builds the translator-instance-specific linkto xattr key
// ("trusted.glusterfs.<instance>.linkto").
func LinktoKey(instance string) string {
	return fmt.Sprintf("trusted.glusterfs.%s.linkto", instance)
}

// EncodeLayoutRecord serializes one segment as the 16-byte big-endian
// on-disk record: u32 type || u32 start ||
// u32 stop || u32 commit_hash. "type" here is fixed at version 1; it
// exists in the wire format for forward compatibility, not because this
// implementation interprets multiple types.
func EncodeLayoutRecord(seg Segment, commitHash uint32) []byte {
	buf := make([]byte, layoutRecordLen)
	binary.BigEndian.PutUint32(buf[0:4], layoutRecordVersion)
	binary.BigEndian.PutUint32(buf[4:8], seg.Start)
	binary.BigEndian.PutUint32(buf[8:12], seg.Stop)
	binary.BigEndian.PutUint32(buf[12:16], commitHash)
	return buf
}

// DecodeLayoutRecord is EncodeLayoutRecord's inverse. Round-tripping a
// segment through Encode/Decode must be bit-identical.
func DecodeLayoutRecord(buf []byte) (seg Segment, commitHash uint32, err error) {
	if len(buf) != layoutRecordLen {
		return Segment{}, 0, fmt.Errorf("dht: layout record has length %d, want %d", len(buf), layoutRecordLen)
	}
	typ := binary.BigEndian.Uint32(buf[0:4])
	if typ != layoutRecordVersion {
		return Segment{}, 0, fmt.Errorf("dht: layout record has unknown type/version %d", typ)
	}
	seg.Start = binary.BigEndian.Uint32(buf[4:8])
	seg.Stop = binary.BigEndian.Uint32(buf[8:12])
	commitHash = binary.BigEndian.Uint32(buf[12:16])
	return seg, commitHash, nil
}

// EncodeMDS and DecodeMDS implement the MDS xattr value: a u32
// subvolume id, or zero once cleared after heal.
func EncodeMDS(subvolIndex int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(subvolIndex))
	return buf
}

func DecodeMDS(buf []byte) (int, error) {
	if len(buf) != 4 {
		return 0, fmt.Errorf("dht: mds xattr has length %d, want 4", len(buf))
	}
	return int(binary.BigEndian.Uint32(buf)), nil
}
