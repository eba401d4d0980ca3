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

package log

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/deployrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "start_run",
			op: func(t *testing.T, logger *Logger) {
				logger.StartRun(RunHeader{
					Profile:  "live",
					Address:  "dayz.example.com:21",
					Protocol: "ftps",
					Preset:   "raid_on",
				})
			},
			wantLogs: []string{
				"[uploading preset raid_on]",
				"◆ live • ftps://dayz.example.com:21",
			},
		},
		{
			name: "start_dry_run",
			op: func(t *testing.T, logger *Logger) {
				logger.StartRun(RunHeader{Profile: "live", Address: "h:21", Protocol: "ftp", Preset: "raid_on", DryRun: true})
			},
			wantLogs: []string{
				"[previewing preset raid_on]",
				"◆ live • ftp://h:21",
			},
		},
		{
			name: "log_entry",
			op: func(t *testing.T, logger *Logger) {
				logger.LogEntry(status.Entry{Remote: "a.json", Status: status.StatusSucceeded, Backup: status.BackupBackedUp})
			},
			wantLogs: []string{
				strings.TrimSpace(status.FormatEntryLine(status.Entry{Remote: "a.json", Status: status.StatusSucceeded, Backup: status.BackupBackedUp})),
			},
		},
		{
			name: "end_run",
			op: func(t *testing.T, logger *Logger) {
				start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
				logger.EndRun(&status.RunReport{
					StartedAt:  start,
					FinishedAt: start.Add(2 * time.Second),
					BackupDir:  "/backups/live/raid_on/20250102_030405",
					Entries:    []status.Entry{{Status: status.StatusSucceeded}},
				})
			},
			wantLogs: []string{
				"✅ 1 uploaded, 0 failed, 0 skipped in 2s",
				"backups: /backups/live/raid_on/20250102_030405",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("info %s", "test")
				logger.Warningf("warning %s", "test")
				logger.Errorf("error %s", "test")
				logger.Successf("success %s", "test")
			},
			wantLogs: []string{
				"ℹ️  info test",
				"⚠️  warning test",
				"❌ error test",
				"✅ success test",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("testing connection")
			},
			wantLogs: []string{
				"deployrc • testing connection",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Info("second")
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"ℹ️  second",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create buffer for console output
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.New(zerolog.NewTestWriter(t)))

			// Perform operation
			tt.op(t, logger)

			// Check output
			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestEndRunAborted(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	buf := &bytes.Buffer{}
	logger := New(buf, zerolog.Nop())

	r := &status.RunReport{Stamp: "20250102_030405"}
	r.SetErr(errors.New("530 login incorrect"))
	logger.EndRun(r)

	assert.Equal(t, "❌ Run 20250102_030405 aborted: 530 login incorrect", strings.TrimSpace(buf.String()))
}

func TestLogEntryMirrorsToZerolog(t *testing.T) {
	zbuf := &bytes.Buffer{}
	logger := New(io.Discard, zerolog.New(zbuf))

	e := status.Entry{Mapping: "bbp", Remote: "a.json"}
	e.Fail(status.ReasonUploadFailed, errors.New("553 denied"))
	logger.LogEntry(e)

	out := zbuf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"mapping":"bbp"`)
	assert.Contains(t, out, `"reason":"upload-failed"`)
	assert.Contains(t, out, `"error":"553 denied"`)
}

func TestLoggerContext(t *testing.T) {
	// Create logger
	logger := New(io.Discard, zerolog.Nop())

	// Add to context
	ctx := context.Background()
	ctx = NewContext(ctx, logger)

	// Get from context
	got := FromContext(ctx)
	assert.Same(t, logger, got, "logger from context should be the same instance")

	// Check panic on missing logger
	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestSetupWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	console := &bytes.Buffer{}

	logger, closer, err := Setup(Options{
		Level:        zerolog.DebugLevel,
		ConsoleLevel: zerolog.WarnLevel,
		Dir:          dir,
		Console:      console,
	})
	require.NoError(t, err)

	logger.Debug().Str("remote", "/srv/a.json").Msg("file only")
	logger.Warn().Msg("both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"file only"`)
	assert.Contains(t, string(data), `"message":"both"`)

	assert.NotContains(t, console.String(), "file only", "debug stays out of the console")
	assert.Contains(t, console.String(), "both")
}

func TestSetupWithoutDir(t *testing.T) {
	console := &bytes.Buffer{}
	logger, closer, err := Setup(Options{Level: zerolog.InfoLevel, ConsoleLevel: zerolog.InfoLevel, Console: console})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("hello")
	assert.Contains(t, console.String(), "hello")
}
