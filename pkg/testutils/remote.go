// Copyright 2025 walteh LLC
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

// Package testutils provides an in-memory transfer server for tests.
package testutils

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// Operation names recorded in the call log.
const (
	OpConnect  = "connect"
	OpCwd      = "cwd"
	OpList     = "list"
	OpDownload = "download"
	OpUpload   = "upload"
	OpDelete   = "delete"
	OpSize     = "size"
	OpMkdir    = "mkdir"
	OpClose    = "close"
)

// Call is one recorded session call.
type Call struct {
	Op   string
	Path string
}

// 🧪 MemoryServer is a remote.Client backed by a map. Every session shares its files.
type MemoryServer struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	calls    []Call
	failures map[string]error
	open     int

	// ConnectErr makes Connect fail
	ConnectErr error
	// StrictDirs makes uploads fail when the parent directory was never created
	StrictDirs bool
	// SizeUnsupported makes Size fail with a non not-found error
	SizeUnsupported bool
	// BeforeUpload runs before an upload is applied
	BeforeUpload func(path string)
	// UploadTransform rewrites stored upload content, for simulating truncation
	UploadTransform func(path string, content []byte) []byte
}

var _ remote.Client = (*MemoryServer)(nil)

// 🏭 NewMemoryServer creates an empty server with a root directory.
func NewMemoryServer() *MemoryServer {
	return &MemoryServer{
		files:    map[string][]byte{},
		dirs:     map[string]bool{"/": true},
		failures: map[string]error{},
	}
}

// Put stores a file and its parent directories.
func (m *MemoryServer) Put(p string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(p, content)
}

func (m *MemoryServer) putLocked(p string, content []byte) {
	m.files[p] = slices.Clone(content)
	for d := path.Dir(p); ; d = path.Dir(d) {
		m.dirs[d] = true
		if d == "/" || d == "." {
			break
		}
	}
}

// Get returns a stored file.
func (m *MemoryServer) Get(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[p]
	return slices.Clone(b), ok
}

// Fail makes every call of op on path return err. An empty path matches any path.
func (m *MemoryServer) Fail(op, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+" "+p] = err
}

// Calls returns the call log in order.
func (m *MemoryServer) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Paths returns the paths recorded for one operation, in order.
func (m *MemoryServer) Paths(op string) []string {
	var out []string
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c.Path)
		}
	}
	return out
}

// OpenSessions counts sessions that were connected but not closed.
func (m *MemoryServer) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MemoryServer) record(op, p string) error {
	m.calls = append(m.calls, Call{Op: op, Path: p})
	if err, ok := m.failures[op+" "+p]; ok {
		return err
	}
	if err, ok := m.failures[op+" "]; ok {
		return err
	}
	return nil
}

// Connect implements remote.Client.
func (m *MemoryServer) Connect(ctx context.Context, profile config.Profile) (remote.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(OpConnect, profile.Name); err != nil {
		return nil, err
	}
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}
	m.open++
	return &memorySession{server: m}, nil
}

type memorySession struct {
	server *MemoryServer
	closed bool
}

func (s *memorySession) begin(ctx context.Context, op, p string) (func(), error) {
	s.server.mu.Lock()
	unlock := s.server.mu.Unlock
	if s.closed {
		unlock()
		return nil, errors.Errorf("%s %s: session closed", op, p)
	}
	if err := s.server.record(op, p); err != nil {
		unlock()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		unlock()
		return nil, err
	}
	return unlock, nil
}

func (s *memorySession) CurrentDir(ctx context.Context) (string, error) {
	unlock, err := s.begin(ctx, OpCwd, "")
	if err != nil {
		return "", err
	}
	defer unlock()
	return "/", nil
}

func (s *memorySession) List(ctx context.Context, dir string) ([]remote.FileEntry, error) {
	unlock, err := s.begin(ctx, OpList, dir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !s.server.dirs[dir] {
		return nil, errors.Errorf("listing %s: %w", dir, remote.ErrNotFound)
	}
	var out []remote.FileEntry
	for p, b := range s.server.files {
		if path.Dir(p) == dir {
			out = append(out, remote.FileEntry{Name: path.Base(p), Size: int64(len(b)), ModTime: time.Unix(0, 0)})
		}
	}
	for d := range s.server.dirs {
		if d != dir && path.Dir(d) == dir {
			out = append(out, remote.FileEntry{Name: path.Base(d), IsDir: true})
		}
	}
	remote.SortEntries(out)
	return out, nil
}

func (s *memorySession) Download(ctx context.Context, p string) ([]byte, error) {
	unlock, err := s.begin(ctx, OpDownload, p)
	if err != nil {
		return nil, err
	}
	defer unlock()
	b, ok := s.server.files[p]
	if !ok {
		return nil, errors.Errorf("downloading %s: %w", p, remote.ErrNotFound)
	}
	return slices.Clone(b), nil
}

func (s *memorySession) Upload(ctx context.Context, p string, content []byte) error {
	if hook := s.server.BeforeUpload; hook != nil {
		hook(p)
	}
	unlock, err := s.begin(ctx, OpUpload, p)
	if err != nil {
		return err
	}
	defer unlock()
	if s.server.StrictDirs && !s.server.dirs[path.Dir(p)] {
		return errors.Errorf("uploading %s: 553 parent directory does not exist", p)
	}
	if t := s.server.UploadTransform; t != nil {
		content = t(p, content)
	}
	s.server.putLocked(p, content)
	return nil
}

func (s *memorySession) Delete(ctx context.Context, p string) error {
	unlock, err := s.begin(ctx, OpDelete, p)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.server.files[p]; !ok {
		return errors.Errorf("deleting %s: %w", p, remote.ErrNotFound)
	}
	delete(s.server.files, p)
	return nil
}

func (s *memorySession) Size(ctx context.Context, p string) (int64, error) {
	unlock, err := s.begin(ctx, OpSize, p)
	if err != nil {
		return 0, err
	}
	defer unlock()
	if s.server.SizeUnsupported {
		return 0, errors.New("502 SIZE not implemented")
	}
	b, ok := s.server.files[p]
	if !ok {
		return 0, errors.Errorf("sizing %s: %w", p, remote.ErrNotFound)
	}
	return int64(len(b)), nil
}

func (s *memorySession) MakeDirAll(ctx context.Context, dir string) error {
	unlock, err := s.begin(ctx, OpMkdir, dir)
	if err != nil {
		return err
	}
	defer unlock()
	cur := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		cur += "/" + part
		s.server.dirs[cur] = true
	}
	return nil
}

func (s *memorySession) Close() error {
	s.server.mu.Lock()
	defer s.server.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.server.open--
	s.server.calls = append(s.server.calls, Call{Op: OpClose})
	return nil
}
