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

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/deployrc/cmd/deployrc/commands"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/history"
	"github.com/walteh/deployrc/pkg/remote"
	"github.com/walteh/deployrc/pkg/testutils"
	"gitlab.com/tozd/go/errors"
)

const (
	bbpRemote = "/srv/dayz/config/BBP_Settings.json"
	bbpLocal  = `{"raid":true}`
)

// 🧪 writeConfig lays out a config file and a raid_on preset in a temp dir
func writeConfig(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	cfg := `{
		"active_profile": "live",
		"profiles": [
			{"name": "live", "host": "ftp.example.com", "protocol": "ftp", "root": "/srv/dayz"},
			{"name": "test", "host": "10.0.0.2", "protocol": "sftp"}
		],
		"mappings": [
			{"name": "bbp", "local": "BBP_Raid_on.json", "remote": "config/BBP_Settings.json"}
		]
	}`
	path = filepath.Join(dir, "deployrc.json")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "presets", "raid_on"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "presets", "raid_on", "BBP_Raid_on.json"), []byte(bbpLocal), 0o644))
	return dir, path
}

// newTestOpts routes ftp profiles to an in-memory server
func newTestOpts(server *testutils.MemoryServer, input string, out io.Writer) *opts.RootOpts {
	router := remote.NewRouter()
	router.Register(server, config.ProtocolFTP)
	return &opts.RootOpts{In: strings.NewReader(input), Out: out, Router: router}
}

func recentRuns(t *testing.T, dir string) []history.Run {
	t.Helper()
	ctx := context.Background()
	store, err := history.Open(ctx, filepath.Join(dir, "deployrc.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	return runs
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestVersionSkipsConfig(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(""), &out, []string{"version", "--config", filepath.Join(t.TempDir(), "missing.hcl")})
	require.NoError(t, err, "version should not need a config file")
	assert.Contains(t, out.String(), "deployrc version info")
}

func TestProfilesCommand(t *testing.T) {
	_, cfgPath := writeConfig(t)
	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(""), &out, []string{"profiles", "--config", cfgPath})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "live")
	assert.Contains(t, out.String(), "(active)")
	assert.Contains(t, out.String(), "10.0.0.2:22")
}

func TestPreviewCommandJSON(t *testing.T) {
	_, cfgPath := writeConfig(t)
	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(""), &out, []string{"preview", "raid_on", "-o", "json", "--config", cfgPath})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"remote_full": "/srv/dayz/config/BBP_Settings.json"`)
	assert.Contains(t, out.String(), `"state": "OK"`)
}

func TestMissingConfigFails(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(""), &out, []string{"profiles", "--config", filepath.Join(t.TempDir(), "missing.hcl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestUploadCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		input      string
		wantUpload bool
		wantOutput string
	}{
		{name: "yes_flag", args: []string{"--yes"}, wantUpload: true},
		{name: "confirmed", input: "y\n", wantUpload: true, wantOutput: "Upload preset 'raid_on' to profile 'live'?"},
		{name: "declined", input: "n\n", wantOutput: "Upload cancelled"},
		{name: "no_answer", input: "", wantOutput: "Upload cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, cfgPath := writeConfig(t)
			server := testutils.NewMemoryServer()
			server.Put(bbpRemote, []byte("old"))

			var out bytes.Buffer
			args := append([]string{"upload", "raid_on", "--config", cfgPath}, tt.args...)
			err := execute(context.Background(), newTestOpts(server, tt.input, &out), args)
			require.NoError(t, err)

			if tt.wantOutput != "" {
				assert.Contains(t, out.String(), tt.wantOutput)
			}

			got, _ := server.Get(bbpRemote)
			if !tt.wantUpload {
				assert.Equal(t, []byte("old"), got)
				assert.Empty(t, server.Calls(), "a declined upload never connects")
				return
			}
			assert.Equal(t, []byte(bbpLocal), got)

			backups, err := filepath.Glob(filepath.Join(dir, "backups", "live", "raid_on", "*", "config", "BBP_Settings.json"))
			require.NoError(t, err)
			require.Len(t, backups, 1)
			saved, err := os.ReadFile(backups[0])
			require.NoError(t, err)
			assert.Equal(t, []byte("old"), saved)

			runs := recentRuns(t, dir)
			require.Len(t, runs, 1)
			assert.Equal(t, 1, runs[0].Succeeded)
			assert.True(t, runs[0].OK())
		})
	}
}

func TestUploadCommandDryRun(t *testing.T) {
	dir, cfgPath := writeConfig(t)
	server := testutils.NewMemoryServer()

	var out bytes.Buffer
	err := execute(context.Background(), newTestOpts(server, "", &out), []string{"upload", "raid_on", "--dry-run", "--config", cfgPath})
	require.NoError(t, err)

	assert.Empty(t, server.Calls(), "a dry run never connects")
	runs := recentRuns(t, dir)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 1, runs[0].Skipped)
}

func TestUploadCommandFailedEntry(t *testing.T) {
	dir, cfgPath := writeConfig(t)
	server := testutils.NewMemoryServer()
	server.Fail(testutils.OpUpload, bbpRemote, errors.New("552 quota exceeded"))

	closed := false
	ro := newTestOpts(server, "", &bytes.Buffer{})
	ro.Closers = append(ro.Closers, closerFunc(func() error {
		closed = true
		return nil
	}))

	err := execute(context.Background(), ro, []string{"upload", "raid_on", "--yes", "--config", cfgPath})
	require.Error(t, err, "a failed entry makes the command fail")
	assert.True(t, errors.Is(err, commands.ErrReported))
	assert.True(t, closed, "resources are released when the command fails")
	assert.Empty(t, ro.Closers)

	runs := recentRuns(t, dir)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failed)
}

func TestUploadCommandInterruptedRunIsJournaled(t *testing.T) {
	dir, cfgPath := writeConfig(t)
	server := testutils.NewMemoryServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.BeforeUpload = func(string) { cancel() }

	err := execute(ctx, newTestOpts(server, "", &bytes.Buffer{}), []string{"upload", "raid_on", "--yes", "--config", cfgPath})
	require.Error(t, err)

	runs := recentRuns(t, dir)
	require.Len(t, runs, 1, "the interrupted run is still recorded")
	assert.False(t, runs[0].OK())
}

func TestUploadCommandUnknownPresetReleasesResources(t *testing.T) {
	_, cfgPath := writeConfig(t)
	server := testutils.NewMemoryServer()

	closed := false
	ro := newTestOpts(server, "", &bytes.Buffer{})
	ro.Closers = append(ro.Closers, closerFunc(func() error {
		closed = true
		return nil
	}))

	err := execute(context.Background(), ro, []string{"upload", "raid_off", "--yes", "--config", cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preset raid_off not found")
	assert.True(t, closed)
}

func TestLsCommand(t *testing.T) {
	_, cfgPath := writeConfig(t)
	server := testutils.NewMemoryServer()
	server.Put(bbpRemote, []byte("old"))
	server.Put("/srv/dayz/config/types.xml", []byte("<types/>"))

	var out bytes.Buffer
	err := execute(context.Background(), newTestOpts(server, "", &out), []string{"ls", "config", "--config", cfgPath})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "BBP_Settings.json")
	assert.Contains(t, out.String(), "types.xml")
	assert.Equal(t, []string{"/srv/dayz/config"}, server.Paths(testutils.OpList))
	assert.Zero(t, server.OpenSessions())
}
