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

func TestLayoutCachePutGetInvalidate(t *testing.T) {
	c, err := NewLayoutCache(4)
	require.NoError(t, err)

	l := &Layout{CommitHash: 1}
	c.Put(InodeID("d1"), l)

	got, ok := c.Get(InodeID("d1"))
	require.True(t, ok)
	assert.Same(t, l, got)

	c.Invalidate(InodeID("d1"))
	_, ok = c.Get(InodeID("d1"))
	assert.False(t, ok)
}

func TestNilLayoutCacheIsSafeNoOp(t *testing.T) {
	var c *LayoutCache
	c.Put(InodeID("x"), &Layout{})
	_, ok := c.Get(InodeID("x"))
	assert.False(t, ok)
	c.Invalidate(InodeID("x"))
}
