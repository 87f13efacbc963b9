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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
instance: dht0
subvolumes:
  - name: brick-0
    index: 0
    address: 10.0.0.1:24007
  - name: brick-1
    index: 1
    address: 10.0.0.2:24007
layout:
  randomize-by-gfid: true
  spread-cnt: 2
  lookup-unhashed: auto
lock:
  backend-timeout: 45s
logging:
  severity: debug
  format: json
`

func TestLoadParsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dht.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	c, err := cfg.Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "dht0", c.Instance)
	require.Len(t, c.Subvolumes, 2)
	assert.Equal(t, "brick-1", c.Subvolumes[1].Name)
	assert.Equal(t, 2, c.Layout.SpreadCount)
	assert.Equal(t, cfg.LookupUnhashedAuto, c.Layout.LookupUnhashed)
	assert.Equal(t, 45*time.Second, c.Lock.BackendTimeout)
	assert.Equal(t, cfg.DebugLogSeverity, c.Logging.Severity)
	assert.Equal(t, cfg.LogFormatJSON, c.Logging.Format)
}

func TestLoadAppliesDefaultsWhenNoFileGiven(t *testing.T) {
	c, err := cfg.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "LAYOUT_HEAL", c.Lock.LayoutHealDomain)
	assert.Equal(t, "ENTRY_SYNC", c.Lock.EntrySyncDomain)
	assert.Equal(t, 4096, c.Layout.CacheSize)
	assert.Equal(t, 100, c.Logging.MaxSizeMb)
	assert.Equal(t, 5, c.Logging.MaxBackups)
}

func TestLoadRejectsInvalidSeverity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dht.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  severity: LOUD\n"), 0644))

	_, err := cfg.Load(viper.New(), path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := cfg.Load(viper.New(), filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
