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

package remote

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// ErrNotFound is returned by Download and Size when the remote file does not exist.
var ErrNotFound = errors.Base("remote file not found")

// Client opens transfer sessions for a profile.
type Client interface {
	// Connect dials and authenticates against the profile's server
	Connect(ctx context.Context, profile config.Profile) (Session, error)
}

// Session is one authenticated connection. Paths are absolute remote paths.
// A Session is not safe for concurrent use.
type Session interface {
	// CurrentDir returns the server's working directory after login
	CurrentDir(ctx context.Context) (string, error)
	// List returns the entries of a remote directory
	List(ctx context.Context, dir string) ([]FileEntry, error)
	// Download returns the full content of a remote file, or ErrNotFound
	Download(ctx context.Context, path string) ([]byte, error)
	// Upload replaces the remote file with content
	Upload(ctx context.Context, path string, content []byte) error
	// Delete removes a remote file
	Delete(ctx context.Context, path string) error
	// Size returns the size of a remote file, or ErrNotFound
	Size(ctx context.Context, path string) (int64, error)
	// MakeDirAll creates dir and any missing parents
	MakeDirAll(ctx context.Context, dir string) error
	// Close releases the connection
	Close() error
}

// FileEntry is one item of a remote directory listing.
type FileEntry struct {
	Name    string
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// SortEntries orders directories first, then by name.
func SortEntries(entries []FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

// 🔀 Router is a Client that dispatches on the profile protocol.
type Router struct {
	mu      sync.RWMutex
	clients map[config.Protocol]Client
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{clients: map[config.Protocol]Client{}}
}

// Register binds a client to one or more protocols, replacing earlier bindings.
func (r *Router) Register(client Client, protocols ...config.Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range protocols {
		r.clients[p] = client
	}
}

// Protocols lists the registered protocols, sorted.
func (r *Router) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	options := []string{}
	for k := range r.clients {
		options = append(options, string(k))
	}
	slices.Sort(options)
	return options
}

// Connect implements Client.
func (r *Router) Connect(ctx context.Context, profile config.Profile) (Session, error) {
	r.mu.RLock()
	client, ok := r.clients[profile.Protocol]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("protocol %s not supported, options: %s", profile.Protocol, strings.Join(r.Protocols(), ", "))
	}

	zerolog.Ctx(ctx).Debug().
		Str("profile", profile.Name).
		Str("protocol", string(profile.Protocol)).
		Str("address", profile.Address()).
		Msg("connecting")

	session, err := client.Connect(ctx, profile)
	if err != nil {
		return nil, errors.Errorf("connecting to %s: %w", profile.Address(), err)
	}
	return session, nil
}
