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

// DirStatSize is the canonical block count a merged directory stat is
// clamped to, since directory size is otherwise meaningless once
// fanned-out sizes are summed.
const DirStatSize = 4096

// MergeDirStats implements the directory stat-merge policy used by
// fan-out FOPs (mkdir, rmdir, setattr-on-dir, readdirp-with-stat
// replies). The first entry in replies establishes gfid/type/mode/nlink/
// dev, taken from the first non-null reply.
func MergeDirStats(replies []Dirent) Dirent {
	if len(replies) == 0 {
		return Dirent{}
	}

	out := replies[0]
	out.Size = 0
	out.Blocks = 0

	for _, r := range replies {
		out.Size += r.Size
		out.Blocks += r.Blocks

		if r.UID > out.UID {
			out.UID = r.UID
		}
		if r.GID > out.GID {
			out.GID = r.GID
		}
		if laterTime(r.Atime, out.Atime) {
			out.Atime = r.Atime
		}
		if laterTime(r.Mtime, out.Mtime) {
			out.Mtime = r.Mtime
		}
		if laterTime(r.Ctime, out.Ctime) {
			out.Ctime = r.Ctime
		}
	}

	// Directory size across subvolumes is meaningless; canonicalize it
	// rather than report the fanned-out sum.
	out.Size = DirStatSize

	return out
}

// laterTime compares two timestamps lexicographically by (sec, nsec),
// for atime/mtime/ctime merge.
func laterTime(a, b timeLike) bool {
	if a.Unix() != b.Unix() {
		return a.Unix() > b.Unix()
	}
	return a.Nanosecond() > b.Nanosecond()
}

// timeLike is satisfied by time.Time; declared as an interface only so
// this file's comparison helper reads the same regardless of which
// concrete clock type is threaded through.
type timeLike interface {
	Unix() int64
	Nanosecond() int
}
