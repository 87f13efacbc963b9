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

package lock

import (
	"context"
	"fmt"

	"github.com/gluster/glusterfs-sub024/internal/dht"
)

// Namespace is the inodelk-then-entrylk protocol,
// "entrylk after inodelk". It acquires a read inodelk in the
// LAYOUT_HEAL domain on the directory's hashed subvolume, then a write
// entrylk in the ENTRY_SYNC domain on (parent, name) on that same
// subvolume, in that order; Release releases entrylk first, then
// inodelk — the reverse order of acquisition.
type Namespace struct {
	subvolName string
	subvol     Backend
	parentGfid string
	childName  string
	owner      string

	inodelkReqs  []Request
	entrylkReqs  []Request
	haveInodelk  bool
	haveEntrylk  bool
}

// NewNamespace builds (but does not acquire) a namespace lock on
// childName within the directory identified by parentGfid, on the given
// hashed subvolume.
func NewNamespace(subvolName string, subvol Backend, parentGfid, childName, owner string) *Namespace {
	return &Namespace{subvolName: subvolName, subvol: subvol, parentGfid: parentGfid, childName: childName, owner: owner}
}

// Acquire runs the five-step sequence: blocking
// inodelk, then (on success) blocking entrylk; on entrylk failure the
// inodelk is explicitly released so nothing leaks.
func (n *Namespace) Acquire(ctx context.Context) error {
	n.inodelkReqs = []Request{{
		SubvolName: n.subvolName,
		Subvol:     n.subvol,
		Gfid:       n.parentGfid,
		Domain:     DomainLayoutHeal,
		Type:       dht.LockRead,
		Policy:     dht.FailOnAnyError,
		Owner:      n.owner,
	}}
	if err := AcquireInodelk(ctx, n.inodelkReqs); err != nil {
		return fmt.Errorf("lock: namespace inodelk on %s: %w", n.subvolName, err)
	}
	n.haveInodelk = true

	n.entrylkReqs = []Request{{
		SubvolName: n.subvolName,
		Subvol:     n.subvol,
		Gfid:       n.parentGfid,
		Basename:   n.childName,
		Domain:     DomainEntrySync,
		Type:       dht.LockWrite,
		Policy:     dht.FailOnAnyError,
		Owner:      n.owner,
	}}
	if err := AcquireEntrylk(ctx, n.entrylkReqs); err != nil {
		ReleaseInodelk(ctx, n.inodelkReqs)
		n.haveInodelk = false
		return fmt.Errorf("lock: namespace entrylk on %s/%s: %w", n.subvolName, n.childName, err)
	}
	n.haveEntrylk = true
	return nil
}

// Release unlocks entrylk first, then inodelk.
// It is safe to call after a partial Acquire failure.
func (n *Namespace) Release(ctx context.Context) {
	if n.haveEntrylk {
		ReleaseEntrylk(ctx, n.entrylkReqs)
		n.haveEntrylk = false
	}
	if n.haveInodelk {
		ReleaseInodelk(ctx, n.inodelkReqs)
		n.haveInodelk = false
	}
}
