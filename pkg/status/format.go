package status

import (
	"fmt"
	"time"
)

// EntryFormatter defines how run entries and progress should be formatted
type EntryFormatter interface {
	// FormatEntry formats one entry as a single line
	FormatEntry(e Entry) string

	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatSummary formats the closing line of a run
	FormatSummary(r *RunReport) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultEntryFormatter provides a default implementation of EntryFormatter
type DefaultEntryFormatter struct{}

// NewDefaultEntryFormatter creates a new DefaultEntryFormatter
func NewDefaultEntryFormatter() *DefaultEntryFormatter {
	return &DefaultEntryFormatter{}
}

// FormatEntry formats an entry with emojis
func (f *DefaultEntryFormatter) FormatEntry(e Entry) string {
	switch e.Status {
	case StatusSucceeded:
		if e.Backup == BackupBackedUp {
			return fmt.Sprintf("✨ Uploaded %s (backed up)", e.Remote)
		}
		return fmt.Sprintf("✨ Uploaded %s", e.Remote)
	case StatusSkipped:
		return fmt.Sprintf("⏭️  Skipped %s (%s)", e.Remote, e.Reason)
	case StatusFailed:
		if e.Message != "" {
			return fmt.Sprintf("❌ Failed %s (%s): %s", e.Remote, e.Reason, e.Message)
		}
		return fmt.Sprintf("❌ Failed %s (%s)", e.Remote, e.Reason)
	default:
		return fmt.Sprintf("⏳ Pending %s", e.Remote)
	}
}

// FormatProgress formats a progress message with percentage
func (f *DefaultEntryFormatter) FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		percentage = 0
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatSummary formats the totals of a run
func (f *DefaultEntryFormatter) FormatSummary(r *RunReport) string {
	if r.Message != "" {
		return fmt.Sprintf("❌ Run %s aborted: %s", r.Stamp, r.Message)
	}
	ok, failed, skipped := r.Counts()
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	if failed > 0 {
		return fmt.Sprintf("⚠️  %d uploaded, %d failed, %d skipped in %s", ok, failed, skipped, elapsed)
	}
	return fmt.Sprintf("✅ %d uploaded, %d failed, %d skipped in %s", ok, failed, skipped, elapsed)
}

// FormatError formats an error message with emoji
func (f *DefaultEntryFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
