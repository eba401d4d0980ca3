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

package operation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 📂 Files is the current listing of a preset folder
type Files interface {
	// Files lists preset relative paths, read from disk on every call
	Files(ctx context.Context) ([]string, error)
	// Path returns the absolute local path of a preset relative path
	Path(rel string) string
}

// 📦 Operation is one resolved upload. Index is the position of its mapping
// among the enabled mappings.
type Operation struct {
	Index          int
	Mapping        string
	Local          string
	LocalPath      string
	RemotePath     string
	RemoteFullPath string
	Backup         bool
}

// 🔎 Finding is an enabled mapping that cannot run
type Finding struct {
	Index   int
	Mapping string
	Local   string
	Remote  string
	Reason  status.Reason
	Message string
}

// 📋 Resolution is the outcome of matching mappings against a preset.
type Resolution struct {
	// Enabled counts the enabled mappings; every one is either an operation or a finding
	Enabled    int
	Operations []Operation
	Findings   []Finding
}

// 🎯 Resolve matches the enabled mappings against the current preset listing.
// Matching is exact and case sensitive. Mappings without a local file become
// findings, they never abort resolution. Operations keep mapping order and
// duplicate remote targets are kept.
func Resolve(ctx context.Context, profile config.Profile, preset Files, mappings []config.Mapping) (*Resolution, error) {
	logger := zerolog.Ctx(ctx)

	files, err := preset.Files(ctx)
	if err != nil {
		return nil, errors.Errorf("resolving mappings: %w", err)
	}

	available := make(map[string]bool, len(files))
	for _, f := range files {
		available[f] = true
	}

	res := &Resolution{}
	for _, m := range mappings {
		if !m.IsEnabled() {
			logger.Trace().Str("mapping", m.Name).Msg("mapping disabled")
			continue
		}
		idx := res.Enabled
		res.Enabled++

		remotePath := config.NormalizeRemote(m.Remote)
		if !available[m.Local] {
			logger.Debug().Str("mapping", m.Name).Str("local", m.Local).Msg("local file missing from preset")
			res.Findings = append(res.Findings, Finding{
				Index:   idx,
				Mapping: m.Name,
				Local:   m.Local,
				Remote:  remotePath,
				Reason:  status.ReasonMissingLocalFile,
				Message: fmt.Sprintf("missing local file for mapping %s", remotePath),
			})
			continue
		}

		res.Operations = append(res.Operations, Operation{
			Index:          idx,
			Mapping:        m.Name,
			Local:          m.Local,
			LocalPath:      preset.Path(m.Local),
			RemotePath:     remotePath,
			RemoteFullPath: profile.FullPath(remotePath),
			Backup:         m.WantsBackup(),
		})
	}

	logger.Debug().
		Int("enabled", res.Enabled).
		Int("operations", len(res.Operations)).
		Int("findings", len(res.Findings)).
		Msg("resolved mappings")

	return res, nil
}
