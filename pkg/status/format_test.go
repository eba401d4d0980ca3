package status

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 🧪 TestDefaultEntryFormatter tests the default entry formatter implementation
func TestDefaultEntryFormatter(t *testing.T) {
	tests := []struct {
		name        string
		entry       Entry
		want        string
		description string
	}{
		{
			name:        "uploaded_with_backup",
			entry:       Entry{Remote: "config/a.json", Status: StatusSucceeded, Backup: BackupBackedUp},
			want:        "✨ Uploaded config/a.json (backed up)",
			description: "should mention the backup",
		},
		{
			name:        "uploaded_fresh",
			entry:       Entry{Remote: "config/a.json", Status: StatusSucceeded, Backup: BackupSkippedNoRemote},
			want:        "✨ Uploaded config/a.json",
			description: "fresh targets have nothing backed up",
		},
		{
			name:        "skipped",
			entry:       Entry{Remote: "motd.txt", Status: StatusSkipped, Reason: ReasonDryRun},
			want:        "⏭️  Skipped motd.txt (dry-run)",
			description: "should show the skip reason",
		},
		{
			name:        "failed_with_message",
			entry:       Entry{Remote: "a.json", Status: StatusFailed, Reason: ReasonUploadFailed, Message: "553 permission denied"},
			want:        "❌ Failed a.json (upload-failed): 553 permission denied",
			description: "should keep the error verbatim",
		},
		{
			name:        "failed_without_message",
			entry:       Entry{Remote: "a.json", Status: StatusFailed, Reason: ReasonMissingLocalFile},
			want:        "❌ Failed a.json (missing-local-file)",
			description: "should show the reason alone",
		},
		{
			name:        "pending",
			entry:       Entry{Remote: "a.json"},
			want:        "⏳ Pending a.json",
			description: "entries without status are pending",
		},
	}

	f := NewDefaultEntryFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatEntry(tt.entry), tt.description)
		})
	}
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{name: "start", current: 0, total: 3, want: "⏳ Progress: 0/3 (0%)"},
		{name: "partial", current: 1, total: 4, want: "⏳ Progress: 1/4 (25%)"},
		{name: "complete", current: 3, total: 3, want: "✅ Progress: 3/3 (100%)"},
		{name: "zero_total", current: 0, total: 0, want: "✅ Progress: 0/0 (0%)"},
	}

	f := NewDefaultEntryFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatProgress(tt.current, tt.total))
		})
	}
}

func TestFormatSummary(t *testing.T) {
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := NewDefaultEntryFormatter()

	r := &RunReport{
		Stamp:      "20250102_030405",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Entries: []Entry{
			{Status: StatusSucceeded},
			{Status: StatusSucceeded},
			{Status: StatusSkipped},
		},
	}
	assert.Equal(t, "✅ 2 uploaded, 0 failed, 1 skipped in 1.5s", f.FormatSummary(r))

	r.Entries = append(r.Entries, Entry{Status: StatusFailed})
	assert.Equal(t, "⚠️  2 uploaded, 1 failed, 1 skipped in 1.5s", f.FormatSummary(r))

	r.SetErr(fmt.Errorf("530 login incorrect"))
	assert.Equal(t, "❌ Run 20250102_030405 aborted: 530 login incorrect", f.FormatSummary(r))
}

func TestFormatError(t *testing.T) {
	f := NewDefaultEntryFormatter()
	assert.Empty(t, f.FormatError(nil))
	assert.Equal(t, "❌ Error: boom", f.FormatError(fmt.Errorf("boom")))
}
