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

package cfg_test

import (
	"testing"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsRegistersExpectedDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("dhtctl-test", pflag.ContinueOnError)
	require.NoError(t, cfg.BindFlags(fs))

	instance, err := fs.GetString("instance")
	require.NoError(t, err)
	assert.Equal(t, "dht0", instance)

	spread, err := fs.GetInt("layout-spread-cnt")
	require.NoError(t, err)
	assert.Equal(t, 0, spread)

	addr, err := fs.GetString("metrics-addr")
	require.NoError(t, err)
	assert.Equal(t, ":9469", addr)
}

func TestSetDefaultsLeavesExplicitValuesAlone(t *testing.T) {
	c := &cfg.Config{}
	c.Layout.CacheSize = 128
	c.Logging.MaxBackups = 3

	cfg.SetDefaults(c)

	assert.Equal(t, 128, c.Layout.CacheSize)
	assert.Equal(t, 3, c.Logging.MaxBackups)
	assert.Equal(t, 100, c.Logging.MaxSizeMb)
	assert.Equal(t, "LAYOUT_HEAL", c.Lock.LayoutHealDomain)
}
