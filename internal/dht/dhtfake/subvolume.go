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

// Package dhtfake provides an in-memory dht.Subvolume: it backs
// dispatcher, layout-engine, heal, and lock-manager tests without any
// real backend.
package dhtfake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gluster/glusterfs-sub024/internal/dht"
	"golang.org/x/sys/unix"
)

type entry struct {
	dirent   dht.Dirent
	isDir    bool
	children map[string]string // name -> child gfid, directories only
	data     []byte
}

// Subvolume is an in-memory backend. It is safe for concurrent use.
type Subvolume struct {
	name string
	idx  int

	mu      sync.RWMutex
	entries map[string]*entry // gfid -> entry

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	handleMu sync.Mutex
	handles  map[int]string // handle id -> gfid
	nextHnd  int

	// MigratedTo, when non-empty for a gfid, makes Read/Write on
	// this subvolume return dht.ErrFileMigrated (phase 2: only the
	// destination is authoritative) so dispatcher tests can exercise the
	// redirect path without a real backend signaling mode bits.
	migMu      sync.Mutex
	migratedTo map[string]string
	migInProgressTo map[string]string

	setxattrMu    sync.Mutex
	setxattrCalls int
}

// New returns an empty fake subvolume.
func New(name string, idx int) *Subvolume {
	return &Subvolume{
		name:            name,
		idx:             idx,
		entries:         map[string]*entry{dht.RootGfid: {dirent: dht.Dirent{Gfid: dht.RootGfid, Mode: 0755}, isDir: true, children: map[string]string{}}},
		locks:           map[string]*sync.Mutex{},
		handles:         map[int]string{},
		migratedTo:      map[string]string{},
		migInProgressTo: map[string]string{},
	}
}

func (s *Subvolume) Name() string { return s.name }
func (s *Subvolume) Index() int   { return s.idx }

// SeedDir/SeedFile let tests populate the tree directly without going
// through Create/Mkdir.
func (s *Subvolume) SeedDir(parentGfid, name, gfid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[gfid] = &entry{dirent: dht.Dirent{Gfid: gfid, Mode: 0755, Xattrs: map[string][]byte{}}, isDir: true, children: map[string]string{}}
	if p, ok := s.entries[parentGfid]; ok {
		p.children[name] = gfid
	}
}

func (s *Subvolume) SeedFile(parentGfid, name, gfid string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[gfid] = &entry{dirent: dht.Dirent{Gfid: gfid, Mode: 0644, Size: int64(len(data)), Xattrs: map[string][]byte{}}, data: append([]byte(nil), data...)}
	if p, ok := s.entries[parentGfid]; ok {
		p.children[name] = gfid
	}
}

// SetMigratedTo marks gfid as fully migrated away to destName (phase 2)
// and records destName in the linkto xattr of the "dhtctl" instance, the
// instance name the dht tests run under.
func (s *Subvolume) SetMigratedTo(gfid, destName string) {
	s.migMu.Lock()
	defer s.migMu.Unlock()
	s.migratedTo[gfid] = destName
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[gfid]; ok {
		if e.dirent.Xattrs == nil {
			e.dirent.Xattrs = map[string][]byte{}
		}
		e.dirent.Xattrs[dht.LinktoKey("dhtctl")] = []byte(destName)
	}
}

// SetMigrationInProgress marks gfid as being migrated to destName right
// now (phase 1).
func (s *Subvolume) SetMigrationInProgress(gfid, destName string) {
	s.migMu.Lock()
	defer s.migMu.Unlock()
	s.migInProgressTo[gfid] = destName
}

func (s *Subvolume) Lookup(ctx context.Context, parentGfid, name string) (dht.Dirent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.entries[parentGfid]
	if !ok {
		return dht.Dirent{}, dht.Errno(unix.ENOENT)
	}
	gfid, ok := p.children[name]
	if !ok {
		return dht.Dirent{}, dht.Errno(unix.ENOENT)
	}
	return s.entries[gfid].dirent, nil
}

func (s *Subvolume) LookupByGfid(ctx context.Context, gfid string) (dht.Dirent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[gfid]
	if !ok {
		return dht.Dirent{}, dht.Errno(unix.ENOENT)
	}
	return e.dirent, nil
}

func (s *Subvolume) Open(ctx context.Context, gfid string, flags int) (dht.Handle, error) {
	s.mu.RLock()
	_, ok := s.entries[gfid]
	s.mu.RUnlock()
	if !ok {
		return nil, dht.Errno(unix.ENOENT)
	}
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	s.nextHnd++
	id := s.nextHnd
	s.handles[id] = gfid
	return id, nil
}

func (s *Subvolume) gfidForHandle(h dht.Handle) (string, bool) {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	gfid, ok := s.handles[h.(int)]
	return gfid, ok
}

func (s *Subvolume) Read(ctx context.Context, h dht.Handle, buf []byte, off int64) (int, error) {
	gfid, ok := s.gfidForHandle(h)
	if !ok {
		return 0, dht.Errno(unix.EBADF)
	}
	if err := s.migrationSentinel(gfid); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entries[gfid]
	if off >= int64(len(e.data)) {
		return 0, nil
	}
	n := copy(buf, e.data[off:])
	return n, nil
}

func (s *Subvolume) Write(ctx context.Context, h dht.Handle, buf []byte, off int64) (int, error) {
	gfid, ok := s.gfidForHandle(h)
	if !ok {
		return 0, dht.Errno(unix.EBADF)
	}
	if err := s.migrationSentinel(gfid); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[gfid]
	need := off + int64(len(buf))
	if need > int64(len(e.data)) {
		grown := make([]byte, need)
		copy(grown, e.data)
		e.data = grown
	}
	n := copy(e.data[off:], buf)
	e.dirent.Size = int64(len(e.data))
	return n, nil
}

func (s *Subvolume) migrationSentinel(gfid string) error {
	s.migMu.Lock()
	defer s.migMu.Unlock()
	if _, ok := s.migratedTo[gfid]; ok {
		return dht.ErrFileMigrated
	}
	if _, ok := s.migInProgressTo[gfid]; ok {
		return dht.ErrMigrationInProgress
	}
	return nil
}

func (s *Subvolume) Flush(ctx context.Context, h dht.Handle) error { return nil }

func (s *Subvolume) Close(ctx context.Context, h dht.Handle) error {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()
	delete(s.handles, h.(int))
	return nil
}

func (s *Subvolume) Create(ctx context.Context, parentGfid, name, gfidReq string, mode uint32) (dht.Dirent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[parentGfid]
	if !ok {
		return dht.Dirent{}, dht.Errno(unix.ENOENT)
	}
	if _, exists := p.children[name]; exists {
		return dht.Dirent{}, dht.Errno(unix.EEXIST)
	}
	gfid := gfidReq
	if gfid == "" {
		gfid = fmt.Sprintf("%s/%s/%d", s.name, name, time.Now().UnixNano())
	}
	d := dht.Dirent{Gfid: gfid, Mode: mode, Xattrs: map[string][]byte{}}
	s.entries[gfid] = &entry{dirent: d}
	p.children[name] = gfid
	return d, nil
}

func (s *Subvolume) Mkdir(ctx context.Context, parentGfid, name, gfidReq string, mode uint32) (dht.Dirent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[parentGfid]
	if !ok {
		return dht.Dirent{}, dht.Errno(unix.ENOENT)
	}
	if existingGfid, exists := p.children[name]; exists {
		return s.entries[existingGfid].dirent, dht.Errno(unix.EEXIST)
	}
	gfid := gfidReq
	if gfid == "" {
		gfid = fmt.Sprintf("%s/%s/dir/%d", s.name, name, time.Now().UnixNano())
	}
	d := dht.Dirent{Gfid: gfid, Mode: mode | 1<<31, Xattrs: map[string][]byte{}}
	s.entries[gfid] = &entry{dirent: d, isDir: true, children: map[string]string{}}
	p.children[name] = gfid
	return d, nil
}

func (s *Subvolume) Unlink(ctx context.Context, parentGfid, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[parentGfid]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	gfid, ok := p.children[name]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	delete(p.children, name)
	delete(s.entries, gfid)
	return nil
}

func (s *Subvolume) Rmdir(ctx context.Context, parentGfid, name string) error {
	return s.Unlink(ctx, parentGfid, name)
}

func (s *Subvolume) Rename(ctx context.Context, srcParent, srcName, dstParent, dstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.entries[srcParent]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	gfid, ok := sp.children[srcName]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	dp, ok := s.entries[dstParent]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	delete(sp.children, srcName)
	dp.children[dstName] = gfid
	return nil
}

func (s *Subvolume) Link(ctx context.Context, srcGfid, dstParent, dstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[srcGfid]; !ok {
		return dht.Errno(unix.ENOENT)
	}
	dp, ok := s.entries[dstParent]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	dp.children[dstName] = srcGfid
	return nil
}

func (s *Subvolume) Setattr(ctx context.Context, gfid string, uid, gid uint32, mode uint32, atime, mtime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[gfid]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	e.dirent.UID, e.dirent.GID, e.dirent.Mode = uid, gid, mode
	e.dirent.Atime, e.dirent.Mtime = atime, mtime
	return nil
}

func (s *Subvolume) Getxattr(ctx context.Context, gfid, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[gfid]
	if !ok {
		return nil, dht.Errno(unix.ENOENT)
	}
	v, ok := e.dirent.Xattrs[key]
	if !ok {
		return nil, dht.Errno(unix.ENODATA)
	}
	return v, nil
}

func (s *Subvolume) Setxattr(ctx context.Context, gfid, key string, value []byte, heal bool) error {
	s.setxattrMu.Lock()
	s.setxattrCalls++
	s.setxattrMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[gfid]
	if !ok {
		return dht.Errno(unix.ENOENT)
	}
	if e.dirent.Xattrs == nil {
		e.dirent.Xattrs = map[string][]byte{}
	}
	e.dirent.Xattrs[key] = append([]byte(nil), value...)
	return nil
}

// SetxattrCallCount reports how many Setxattr calls this subvolume has
// observed, so tests can assert an already-healed directory issues no
// redundant writes.
func (s *Subvolume) SetxattrCallCount() int {
	s.setxattrMu.Lock()
	defer s.setxattrMu.Unlock()
	return s.setxattrCalls
}

func (s *Subvolume) ListXattr(ctx context.Context, gfid string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[gfid]
	if !ok {
		return nil, dht.Errno(unix.ENOENT)
	}
	out := make(map[string][]byte, len(e.dirent.Xattrs))
	for k, v := range e.dirent.Xattrs {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *Subvolume) lockKey(req dht.BackendLockRequest, entry bool) string {
	if entry {
		return fmt.Sprintf("entry|%s|%s|%s", req.Domain, req.Gfid, req.Basename)
	}
	return fmt.Sprintf("inode|%s|%s", req.Domain, req.Gfid)
}

func (s *Subvolume) mutexFor(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

func (s *Subvolume) InodeLock(ctx context.Context, req dht.BackendLockRequest) error {
	s.mutexFor(s.lockKey(req, false)).Lock()
	return nil
}

func (s *Subvolume) InodeUnlock(ctx context.Context, req dht.BackendLockRequest) error {
	s.mutexFor(s.lockKey(req, false)).Unlock()
	return nil
}

func (s *Subvolume) EntryLock(ctx context.Context, req dht.BackendLockRequest) error {
	s.mutexFor(s.lockKey(req, true)).Lock()
	return nil
}

func (s *Subvolume) EntryUnlock(ctx context.Context, req dht.BackendLockRequest) error {
	s.mutexFor(s.lockKey(req, true)).Unlock()
	return nil
}
