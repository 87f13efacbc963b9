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

	"github.com/spf13/cobra"

	"github.com/gluster/glusterfs-sub024/internal/dht"
)

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect and repair a directory's hash-range layout",
	}
	cmd.AddCommand(newLayoutDumpCmd(), newLayoutFixCmd())
	return cmd
}

func newLayoutDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <dir-gfid>",
		Short: "Print the layout each subvolume currently carries for a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, _, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			dirGfid := args[0]
			for _, sub := range reg.All() {
				dirent, err := sub.LookupByGfid(cmd.Context(), dirGfid)
				if err != nil {
					cmd.Printf("%-16s error: %v\n", sub.Name(), err)
					continue
				}
				raw, ok := dirent.Xattrs[dht.LayoutXattrKey]
				if !ok {
					cmd.Printf("%-16s no layout xattr\n", sub.Name())
					continue
				}
				seg, commitHash, err := dht.DecodeLayoutRecord(raw)
				if err != nil {
					cmd.Printf("%-16s malformed layout record: %v\n", sub.Name(), err)
					continue
				}
				cmd.Printf("%-16s [0x%08x, 0x%08x] commit_hash=0x%08x\n", sub.Name(), seg.Start, seg.Stop, commitHash)
			}
			return nil
		},
	}
}

func newLayoutFixCmd() *cobra.Command {
	var spreadCount int
	c := &cobra.Command{
		Use:   "fix <parent-gfid> <name> <dir-gfid>",
		Short: "Recompute and write a layout that maximizes retained placement",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgVal, reg, metricsReg, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			engine := newHealEngine(cfgVal, reg, metricsReg)
			engine.SpreadCount = spreadCount
			result, err := engine.FixLayoutOnly(cmd.Context(), args[0], args[1], args[2], nil)
			if err != nil {
				return fmt.Errorf("dhtctl: fix layout: %w", err)
			}
			cmd.Printf("layout refreshed: %d segments, commit_hash=0x%08x\n", len(result.Layout.Segments), result.Layout.CommitHash)
			return nil
		},
	}
	c.Flags().IntVar(&spreadCount, "spread-count", 0, "Limit how many subvolumes receive a non-zero range (0 = all).")
	return c
}
