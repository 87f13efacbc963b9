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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
	"github.com/gluster/glusterfs-sub024/internal/dht"
	"github.com/gluster/glusterfs-sub024/internal/heal"
	"github.com/gluster/glusterfs-sub024/internal/metrics"
	"github.com/gluster/glusterfs-sub024/internal/syncop"
)

// newHealEngine builds a heal.Engine from loaded config, honoring the
// spread-count the layout section configures.
func newHealEngine(c *cfg.Config, reg *dht.Registry, metricsReg *metrics.Registry) *heal.Engine {
	e := heal.NewEngine(reg)
	e.SpreadCount = c.Layout.SpreadCount
	e.Metrics = metricsReg
	return e
}

func newHealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Drive the seven-phase directory self-heal",
	}
	cmd.AddCommand(newHealRunCmd(), newHealCommitHashCmd(), newHealAncestryPathCmd())
	return cmd
}

func newHealRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <parent-gfid> <name> <dir-gfid>",
		Short: "Run a full self-heal on one directory",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, reg, metricsReg, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			engine := newHealEngine(c, reg, metricsReg)
			result, err := engine.Run(cmd.Context(), args[0], args[1], args[2], nil)
			if err != nil {
				return fmt.Errorf("dhtctl: heal run: %w", err)
			}
			cmd.Printf("pre-heal anomalies: holes=%d overlaps=%d missing=%d down=%d misc=%d\n",
				result.PreHeal.Holes, result.PreHeal.Overlaps, result.PreHeal.Missing, result.PreHeal.Down, result.PreHeal.Misc)
			if len(result.Created) > 0 {
				cmd.Printf("created directory on: %v\n", result.Created)
			}
			if result.MDS != "" {
				cmd.Printf("metadata source: %s\n", result.MDS)
			}
			cmd.Printf("new layout: %d segments, commit_hash=0x%08x\n", len(result.Layout.Segments), result.Layout.CommitHash)
			return nil
		},
	}
}

// newHealCommitHashCmd bumps a directory's volume-wide commit_hash
// without recomputing any segment's range, the rebalance-only protocol
// dht_update_commit_hash_for_layout implements.
func newHealCommitHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit-hash <dir-gfid> <commit-hash-hex>",
		Short: "Stamp a new commit_hash onto a directory's layout in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, reg, metricsReg, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			hash, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 32)
			if err != nil {
				return fmt.Errorf("dhtctl: parse commit hash: %w", err)
			}
			engine := newHealEngine(c, reg, metricsReg)
			if err := engine.UpdateCommitHash(cmd.Context(), args[0], uint32(hash)); err != nil {
				return fmt.Errorf("dhtctl: update commit hash: %w", err)
			}
			cmd.Printf("commit_hash updated to 0x%08x\n", hash)
			return nil
		},
	}
}

// newHealAncestryPathCmd relinks every ancestor dentry along a pathname
// recovered out-of-band (e.g. from a stale NFS file handle), the
// client-driven counterpart of the get-ancestry-path getxattr key.
func newHealAncestryPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ancestry-path <path>",
		Short: "Relink every ancestor dentry along a recovered pathname",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, reg, metricsReg, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			rt := syncop.NewRuntime(0)
			disp := dht.NewDispatcher(reg, rt, c.Instance)
			disp.Metrics = metricsReg
			gfid, err := dht.ReconstructAncestryPath(cmd.Context(), disp, args[0])
			if err != nil {
				return fmt.Errorf("dhtctl: reconstruct ancestry path: %w", err)
			}
			cmd.Printf("resolved to gfid=%s\n", gfid)
			return nil
		},
	}
}
