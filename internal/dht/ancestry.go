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

package dht

import (
	"context"
	"fmt"
	"strings"
)

// ReconstructAncestryPath relinks every dentry along path, component by
// component, starting from the root. It answers the get-ancestry-path
// request a client sends after recovering a bare gfid (a stale NFS file
// handle, or a lookup-by-gfid that found the inode but no path to it):
// given the full pathname a subvolume's backend already knows for that
// gfid, walk it from the root and re-resolve every ancestor through
// Lookup so each directory along the way is verified to exist and is
// hashed consistently. It returns the gfid the final component
// resolves to.
func ReconstructAncestryPath(ctx context.Context, d *Dispatcher, path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return RootGfid, nil
	}

	parent := RootGfid
	gfid := RootGfid
	for _, component := range strings.Split(path, "/") {
		if component == "" {
			continue
		}
		dirent, _, err := d.Lookup(ctx, parent, component)
		if err != nil {
			return "", fmt.Errorf("dht: reconstruct ancestry path at %q: %w", component, err)
		}
		gfid = dirent.Gfid
		parent = gfid
	}
	return gfid, nil
}
