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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
	"github.com/gluster/glusterfs-sub024/internal/dht"
	"github.com/gluster/glusterfs-sub024/internal/dht/dhtfake"
	"github.com/gluster/glusterfs-sub024/internal/logger"
	"github.com/gluster/glusterfs-sub024/internal/metrics"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dhtctl",
		Short:         "Inspect and repair a DHT-routed volume",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the dhtctl config file.")
	if err := cfg.BindFlags(root.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, "dhtctl: binding flags:", err)
		os.Exit(1)
	}

	root.AddCommand(newLayoutCmd(), newHealCmd(), newLockCmd())
	return root
}

// loadEnv reads config, wires logger, and builds the in-memory
// registry every subcommand operates on.
func loadEnv(cmd *cobra.Command) (*cfg.Config, *dht.Registry, *metrics.Registry, error) {
	c, err := cfg.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := logger.Init(c.Logging); err != nil {
		return nil, nil, nil, err
	}
	reg, err := buildRegistry(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, reg, metrics.New(), nil
}

// buildRegistry seeds a registry from the configured subvolume list.
// No RPC client to a real brick daemon exists in this repository, so
// every configured subvolume is backed by an in-memory dhtfake.Subvolume
// addressed by name; dhtctl drives against this harness until a real
// backend transport is wired in.
func buildRegistry(c *cfg.Config) (*dht.Registry, error) {
	if len(c.Subvolumes) == 0 {
		return nil, fmt.Errorf("dhtctl: no subvolumes configured")
	}
	reg := dht.NewRegistry()
	for _, sv := range c.Subvolumes {
		reg.Add(dhtfake.New(sv.Name, sv.Index))
		if sv.Decommissioned {
			reg.SetDecommissioned(sv.Index, true)
		}
	}
	return reg, nil
}
