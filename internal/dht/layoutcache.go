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

import lru "github.com/hashicorp/golang-lru/v2"

// LayoutCache bounds how many per-directory Layout snapshots the
// dispatcher keeps warm beyond what ContextTable already holds per open
// inode — useful for readdir-heavy workloads that touch far more
// directories than fit comfortably as live InodeCtx entries. It is a
// pure memoization layer: a miss or eviction only costs a re-lookup, it
// never changes correctness.
type LayoutCache struct {
	cache *lru.Cache[InodeID, *Layout]
}

// NewLayoutCache builds a cache holding at most size entries.
func NewLayoutCache(size int) (*LayoutCache, error) {
	c, err := lru.New[InodeID, *Layout](size)
	if err != nil {
		return nil, err
	}
	return &LayoutCache{cache: c}, nil
}

func (c *LayoutCache) Get(id InodeID) (*Layout, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(id)
}

func (c *LayoutCache) Put(id InodeID, l *Layout) {
	if c == nil {
		return
	}
	c.cache.Add(id, l)
}

// Invalidate drops id's cached layout, used when a stale-layout retry
// drops the parent's snapshot.
func (c *LayoutCache) Invalidate(id InodeID) {
	if c == nil {
		return
	}
	c.cache.Remove(id)
}
