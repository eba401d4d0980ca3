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

package status

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestFormatEntryLine(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	pad := func(s string, n int) string { return fmt.Sprintf("%-*s", n, s) }

	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name:  "succeeded_shows_backup",
			entry: Entry{Remote: "config/a.json", Status: StatusSucceeded, Backup: BackupBackedUp},
			want:  "    ✓ " + pad("config/a.json", nameWidth) + " " + pad("succeeded", stateWidth) + " " + pad("backed-up", reasonWidth),
		},
		{
			name:  "failed_shows_reason",
			entry: Entry{Remote: "a.json", Status: StatusFailed, Reason: ReasonBackupFailed},
			want:  "    ✗ " + pad("a.json", nameWidth) + " " + pad("failed", stateWidth) + " " + pad("backup-failed", reasonWidth),
		},
		{
			name:  "skipped",
			entry: Entry{Remote: "a.json", Status: StatusSkipped, Reason: ReasonDryRun},
			want:  "    ⟳ " + pad("a.json", nameWidth) + " " + pad("skipped", stateWidth) + " " + pad("dry-run", reasonWidth),
		},
		{
			name:  "restore_suffix",
			entry: Entry{Remote: "a.json", Status: StatusFailed, Reason: ReasonVerifyFailed, Restore: RestoreRestored},
			want:  "    ✗ " + pad("a.json", nameWidth) + " " + pad("failed", stateWidth) + " " + pad("verify-failed", reasonWidth) + " restore: restored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEntryLine(tt.entry)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, strings.Repeat(" ", fileIndent)), "entries are indented")
		})
	}
}
