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
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gluster/glusterfs-sub024/internal/lock"
)

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Probe the backend lock manager",
	}
	cmd.AddCommand(newLockProbeCmd())
	return cmd
}

func newLockProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <subvolume> <parent-gfid> <name>",
		Short: "Acquire and release a namespace lock, reporting round-trip time",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, metricsReg, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			sub := reg.ByName(args[0])
			if sub == nil {
				return fmt.Errorf("dhtctl: no such subvolume %q", args[0])
			}
			ns := lock.NewNamespace(sub.Name(), sub, args[1], args[2], uuid.NewString())
			start := time.Now()
			if err := ns.Acquire(cmd.Context()); err != nil {
				return fmt.Errorf("dhtctl: lock probe: %w", err)
			}
			wait := time.Since(start)
			ns.Release(cmd.Context())
			metricsReg.ObserveLockWait(lock.DomainLayoutHeal, wait)
			cmd.Printf("acquired and released namespace lock on %s/%s via %s in %s\n", args[1], args[2], sub.Name(), wait)
			return nil
		},
	}
}
