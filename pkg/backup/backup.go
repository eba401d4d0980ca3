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

package backup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/remote"
	"github.com/walteh/deployrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// maxRunSuffix bounds the search for a free run directory
const maxRunSuffix = 100

// 💾 Result is the outcome of backing up one remote file
type Result struct {
	Outcome status.BackupOutcome
	// Path is the local backup file, set when Outcome is backed-up or a duplicate of one
	Path string
	// Content is the pre-run remote content, kept for restores
	Content []byte
	// Existed reports whether the remote file existed before the run touched it
	Existed bool
	Err     error
}

// 🗄️ Run stores the backups of one run under
// <root>/<profile>/<preset>/<stamp>/<remote path>.
type Run struct {
	root    string
	profile string
	preset  string
	stamp   string

	mu   sync.Mutex
	dir  string
	seen map[string]Result
}

// 🏭 NewRun creates a backup run. Nothing is written until the first backup.
func NewRun(root, profile, preset, stamp string) (*Run, error) {
	if root == "" {
		return nil, errors.Errorf("backup root is required")
	}
	for field, v := range map[string]string{"profile": profile, "preset": preset, "stamp": stamp} {
		if !isComponent(v) {
			return nil, errors.Errorf("invalid %s %q for a backup path", field, v)
		}
	}
	return &Run{
		root:    root,
		profile: profile,
		preset:  preset,
		stamp:   stamp,
		seen:    map[string]Result{},
	}, nil
}

// Dir returns the run directory, or "" when nothing was backed up yet.
func (r *Run) Dir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dir
}

// 📥 Backup saves the current content of fullPath before it is overwritten.
// rel is the remote path relative to the profile root and decides where the
// copy is stored. A missing remote file is not an error. A path already seen
// in this run keeps its first copy.
func (r *Run) Backup(ctx context.Context, session remote.Session, rel, fullPath string) Result {
	logger := zerolog.Ctx(ctx).With().Str("remote", fullPath).Logger()

	r.mu.Lock()
	defer r.mu.Unlock()

	rel = path.Clean(rel)
	if prev, ok := r.seen[rel]; ok {
		logger.Debug().Str("backup", prev.Path).Msg("already backed up in this run")
		prev.Outcome = status.BackupSkippedDuplicate
		return prev
	}

	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return failed(errors.Errorf("remote path %q cannot be stored under the run directory", rel))
	}

	content, err := session.Download(ctx, fullPath)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			logger.Debug().Msg("no remote file, nothing to back up")
			res := Result{Outcome: status.BackupSkippedNoRemote}
			r.seen[rel] = res
			return res
		}
		return failed(errors.Errorf("downloading %s: %w", fullPath, err))
	}

	dir, err := r.reserve()
	if err != nil {
		return failed(err)
	}

	dest := filepath.Join(dir, local)
	if err := writeOnce(dest, content); err != nil {
		return failed(err)
	}

	logger.Info().Str("backup", dest).Int("bytes", len(content)).Msg("backed up remote file")

	res := Result{
		Outcome: status.BackupBackedUp,
		Path:    dest,
		Content: content,
		Existed: true,
	}
	r.seen[rel] = res
	return res
}

func failed(err error) Result {
	return Result{Outcome: status.BackupFailed, Err: err}
}

// reserve claims the run directory. A directory left by another run with the
// same stamp is never shared; a numeric suffix is added instead.
func (r *Run) reserve() (string, error) {
	if r.dir != "" {
		return r.dir, nil
	}

	parent := filepath.Join(r.root, r.profile, r.preset)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", errors.Errorf("creating backup directory: %w", err)
	}

	for i := 0; i < maxRunSuffix; i++ {
		name := r.stamp
		if i > 0 {
			name = fmt.Sprintf("%s-%d", r.stamp, i)
		}
		dir := filepath.Join(parent, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			r.dir = dir
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", errors.Errorf("creating run directory: %w", err)
		}
	}
	return "", errors.Errorf("no free run directory for stamp %s under %s", r.stamp, parent)
}

func writeOnce(dest string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Errorf("creating backup directory: %w", err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Errorf("creating backup file: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(dest)
		return errors.Errorf("writing backup file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return errors.Errorf("closing backup file: %w", err)
	}
	return nil
}

func isComponent(s string) bool {
	return s != "" && s != "." && s != ".." && filepath.Base(s) == s && filepath.IsLocal(s)
}
