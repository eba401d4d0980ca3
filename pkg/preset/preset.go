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

// Package preset enumerates preset folders and the files inside them.
package preset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📁 Preset is a named local folder of candidate files
type Preset struct {
	Name   string
	Dir    string
	Ignore []string
}

// 🏭 Open returns the preset named name under presetsDir.
func Open(presetsDir, name string, ignore []string) (*Preset, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, errors.Errorf("invalid preset name %q", name)
	}
	dir := filepath.Join(presetsDir, name)
	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			names, _ := List(presetsDir)
			return nil, errors.Errorf("preset %s not found in %s, options: %v", name, presetsDir, names)
		}
		return nil, errors.Errorf("opening preset %s: %w", name, err)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("preset %s is not a directory", name)
	}
	return &Preset{Name: name, Dir: dir, Ignore: ignore}, nil
}

// List returns the sorted names of the preset folders under presetsDir.
// A missing presetsDir yields no presets.
func List(presetsDir string) ([]string, error) {
	entries, err := os.ReadDir(presetsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Errorf("reading presets directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink != 0 {
			// a linked preset counts when it points at a folder
			if fi, err := os.Stat(filepath.Join(presetsDir, e.Name())); err == nil && fi.IsDir() {
				names = append(names, e.Name())
			}
			continue
		}
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// 🔍 Files walks the preset folder and returns slash separated paths relative
// to it, sorted. The listing is read from disk on every call. A symlinked
// preset folder is walked through its target.
func (p *Preset) Files(ctx context.Context) ([]string, error) {
	root, err := filepath.EvalSymlinks(p.Dir)
	if err != nil {
		return nil, errors.Errorf("listing preset %s: %w", p.Name, err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ignored, err := p.ignored(rel)
		if err != nil {
			return err
		}
		if ignored {
			zerolog.Ctx(ctx).Trace().Str("file", rel).Msg("ignoring preset file")
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("listing preset %s: %w", p.Name, err)
	}
	sort.Strings(files)
	return files, nil
}

func (p *Preset) ignored(rel string) (bool, error) {
	for _, pattern := range p.Ignore {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, errors.Errorf("matching ignore pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// Path returns the absolute local path of a preset relative file.
func (p *Preset) Path(rel string) string {
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}
