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

// Package dht implements the DHT routing translator: layout math, inode
// and fd context, the migration-transparent FOP dispatcher, and the
// rebalance-coherency tasks that bridge the two.
package dht

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Errno mirrors the small set of POSIX error codes the translator cares
// about. It is a distinct type (rather than a bare syscall.Errno) so
// layout segments can store it as "-1 means unset" alongside real errno
// values.
type Errno int32

// Sentinel values used in Segment.Err. ErrnoUnset is not a valid errno;
// it means "this segment has not been assigned a subvolume yet".
const (
	ErrnoNone  Errno = 0
	ErrnoUnset Errno = -1
)

func (e Errno) Error() string {
	switch e {
	case ErrnoNone:
		return "success"
	case ErrnoUnset:
		return "layout segment unset"
	default:
		return unix.Errno(e).Error()
	}
}

// IsMissingDir reports whether e indicates the directory does not exist
// on the subvolume (ENOENT/ESTALE), the "racing metadata" error class.
func (e Errno) IsMissingDir() bool {
	return e == Errno(unix.ENOENT) || e == Errno(unix.ESTALE)
}

// IsDown reports whether e indicates a connectivity-related failure.
func (e Errno) IsDown() bool {
	return e == Errno(unix.ENOTCONN) || e == Errno(unix.ETIMEDOUT) || e == Errno(unix.EHOSTUNREACH)
}

// Sentinel errors returned by the dispatcher and the rebalance
// coherency tasks. These are never real errno values; they are internal
// signaling used between the dispatcher and the synctasks it schedules.
var (
	// ErrNoReplyYet stands in for EUCLEAN as the dispatcher's initial
	// sentinel for "no reply received yet". It must never reach a caller.
	ErrNoReplyYet = errors.New("dht: no reply received yet (internal sentinel)")

	// ErrMigrationInProgress is returned internally when a FOP observes the
	// migration-underway mode-bit pattern on the cached subvolume.
	ErrMigrationInProgress = errors.New("dht: file is mid-migration")

	// ErrFileMigrated is the "file has been migrated away" sentinel a data
	// FOP sees when the source no longer serves a phase-2 linkto stub.
	ErrFileMigrated = errors.New("dht: file has been migrated")

	// ErrNotMyLayer is returned by MigrationCompleteCheck when the linkto
	// xattr is absent: some other translator instance owns this migration.
	ErrNotMyLayer = errors.New("dht: migration not owned by this layer")

	// ErrLayoutInFlux marks a layout snapshot taken while commit_hash was
	// COMMIT_HASH_INVALID; readdir optimizations must not trust it.
	ErrLayoutInFlux = errors.New("dht: layout is in flux")

	// ErrNoParticipants is returned by AssignLayout when every candidate
	// subvolume is decommissioned or down.
	ErrNoParticipants = errors.New("dht: no participant subvolumes available")
)

// GfidMismatchError is a fatal integrity-violation error: the
// destination's lookup reply names a different gfid than expected.
type GfidMismatchError struct {
	Expected, Got string
}

func (e *GfidMismatchError) Error() string {
	return fmt.Sprintf("dht: gfid mismatch after migration lookup: expected %s, got %s", e.Expected, e.Got)
}

func (e *GfidMismatchError) Is(target error) bool {
	return target == unix.EIO
}

// DecommissionedError is the fatal configuration error:
// a decommissioned subvolume was selected as a create/mkdir target.
type DecommissionedError struct {
	Subvolume string
}

func (e *DecommissionedError) Error() string {
	return fmt.Sprintf("dht: refusing to place new file on decommissioned subvolume %q", e.Subvolume)
}

func (e *DecommissionedError) Is(target error) bool {
	return target == unix.EINVAL
}
