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

// HashName computes the 32-bit hash of a child name used to place it
// within its parent's layout. This must be byte-for-byte stable across
// releases, since hash-range assignments are implicitly persisted to
// disk. It is a shift-add-xor rotating hash over the name's bytes with
// a final avalanche step; it does not reproduce GlusterFS's
// Davies-Meyer `gf_dm_hashfn` values. It is kept fixed here rather than
// swapped for a standard-library hash, precisely because stability is
// an external contract, not an implementation detail we're free to
// improve.
//
// The hash is taken modulo 2^32 directly: a uint32 already fills the
// space, so no further reduction is applied.
func HashName(name string) uint32 {
	var h uint32 = 0
	for i := 0; i < len(name); i++ {
		h = (h << 4) + uint32(name[i]) + (h >> 28)
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}
