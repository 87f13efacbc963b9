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

package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration struct, unmarshaled from a YAML file
// (if supplied), environment variables, and pflag overrides, in that
// ascending order of precedence.
type Config struct {
	Instance string `yaml:"instance" mapstructure:"instance"`

	Subvolumes []SubvolumeConfig `yaml:"subvolumes" mapstructure:"subvolumes"`

	Layout  LayoutConfig  `yaml:"layout" mapstructure:"layout"`
	Lock    LockConfig    `yaml:"lock" mapstructure:"lock"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// SubvolumeConfig names one backend participant.
type SubvolumeConfig struct {
	Name           string `yaml:"name" mapstructure:"name"`
	Index          int    `yaml:"index" mapstructure:"index"`
	Address        string `yaml:"address" mapstructure:"address"`
	Decommissioned bool   `yaml:"decommissioned" mapstructure:"decommissioned"`
}

// LayoutConfig controls layout assignment policy.
type LayoutConfig struct {
	RandomizeByGfid bool                 `yaml:"randomize-by-gfid" mapstructure:"randomize-by-gfid"`
	SpreadCount     int                  `yaml:"spread-cnt" mapstructure:"spread-cnt"`
	LookupUnhashed  LookupUnhashedPolicy `yaml:"lookup-unhashed" mapstructure:"lookup-unhashed"`
	CacheSize       int                  `yaml:"cache-size" mapstructure:"cache-size"`
}

// LockConfig controls backend lock timeouts and domain names.
type LockConfig struct {
	BackendTimeout   time.Duration `yaml:"backend-timeout" mapstructure:"backend-timeout"`
	LayoutHealDomain string        `yaml:"layout-heal-domain" mapstructure:"layout-heal-domain"`
	EntrySyncDomain  string        `yaml:"entry-sync-domain" mapstructure:"entry-sync-domain"`
}

// LoggingConfig controls package logger's severity ladder, output
// format, and lumberjack rotation policy.
type LoggingConfig struct {
	Severity   LogSeverity `yaml:"severity" mapstructure:"severity"`
	Format     LogFormat   `yaml:"format" mapstructure:"format"`
	FilePath   string      `yaml:"file-path" mapstructure:"file-path"`
	MaxSizeMb  int         `yaml:"max-size-mb" mapstructure:"max-size-mb"`
	MaxBackups int         `yaml:"max-backups" mapstructure:"max-backups"`
	MaxAgeDays int         `yaml:"max-age-days" mapstructure:"max-age-days"`
	Compress   bool        `yaml:"compress" mapstructure:"compress"`
}

// MetricsConfig controls the prometheus exporter in internal/metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// BindFlags registers every config field as a pflag on flagSet and
// binds it into viper under the matching dotted key, written by hand
// since this repository has no config-gen step.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.StringP("instance", "", "dht0", "Translator instance name, used to build linkto xattr keys.")
	if err := viper.BindPFlag("instance", flagSet.Lookup("instance")); err != nil {
		return err
	}

	flagSet.BoolP("layout-randomize-by-gfid", "", true, "Rotate layout assignment by directory gfid instead of path.")
	if err := viper.BindPFlag("layout.randomize-by-gfid", flagSet.Lookup("layout-randomize-by-gfid")); err != nil {
		return err
	}

	flagSet.IntP("layout-spread-cnt", "", 0, "Limit how many subvolumes receive a non-zero layout range; 0 means all.")
	if err := viper.BindPFlag("layout.spread-cnt", flagSet.Lookup("layout-spread-cnt")); err != nil {
		return err
	}

	flagSet.StringP("layout-lookup-unhashed", "", string(LookupUnhashedAuto), "Policy for searching other subvolumes on a hashed-layout hole: off, auto, on.")
	if err := viper.BindPFlag("layout.lookup-unhashed", flagSet.Lookup("layout-lookup-unhashed")); err != nil {
		return err
	}

	flagSet.IntP("layout-cache-size", "", 4096, "Maximum number of per-directory layout snapshots memoized in dht.LayoutCache.")
	if err := viper.BindPFlag("layout.cache-size", flagSet.Lookup("layout-cache-size")); err != nil {
		return err
	}

	flagSet.DurationP("lock-backend-timeout", "", 30*time.Second, "Timeout for a single backend inodelk/entrylk RPC.")
	if err := viper.BindPFlag("lock.backend-timeout", flagSet.Lookup("lock-backend-timeout")); err != nil {
		return err
	}

	flagSet.StringP("logging-severity", "", string(InfoLogSeverity), "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("logging-severity")); err != nil {
		return err
	}

	flagSet.StringP("logging-format", "", string(LogFormatText), "Log output format: json or text.")
	if err := viper.BindPFlag("logging.format", flagSet.Lookup("logging-format")); err != nil {
		return err
	}

	flagSet.StringP("logging-file-path", "", "", "Log file path; empty means stderr.")
	if err := viper.BindPFlag("logging.file-path", flagSet.Lookup("logging-file-path")); err != nil {
		return err
	}

	flagSet.BoolP("metrics-enabled", "", false, "Serve Prometheus metrics.")
	if err := viper.BindPFlag("metrics.enabled", flagSet.Lookup("metrics-enabled")); err != nil {
		return err
	}

	flagSet.StringP("metrics-addr", "", ":9469", "Address the Prometheus metrics server listens on.")
	if err := viper.BindPFlag("metrics.addr", flagSet.Lookup("metrics-addr")); err != nil {
		return err
	}

	return nil
}

// SetDefaults installs the struct defaults that aren't otherwise carried
// by a BindFlags default, for callers unmarshaling without going through
// cobra (e.g. a library embedder or a test).
func SetDefaults(c *Config) {
	if c.Lock.LayoutHealDomain == "" {
		c.Lock.LayoutHealDomain = "LAYOUT_HEAL"
	}
	if c.Lock.EntrySyncDomain == "" {
		c.Lock.EntrySyncDomain = "ENTRY_SYNC"
	}
	if c.Layout.CacheSize == 0 {
		c.Layout.CacheSize = 4096
	}
	if c.Logging.MaxSizeMb == 0 {
		c.Logging.MaxSizeMb = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
}
