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

package main

import (
	"testing"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegistrySeedsOneFakePerConfiguredSubvolume(t *testing.T) {
	c := &cfg.Config{Subvolumes: []cfg.SubvolumeConfig{
		{Name: "brick-0", Index: 0},
		{Name: "brick-1", Index: 1, Decommissioned: true},
	}}

	reg, err := buildRegistry(c)
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "brick-0", all[0].Name())
	assert.True(t, reg.IsDecommissioned(1))
	assert.False(t, reg.IsDecommissioned(0))
}

func TestBuildRegistryRejectsEmptyConfig(t *testing.T) {
	_, err := buildRegistry(&cfg.Config{})
	assert.Error(t, err)
}

func TestNewRootCmdRegistersEverySubcommand(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["layout"])
	assert.True(t, names["heal"])
	assert.True(t, names["lock"])
}
