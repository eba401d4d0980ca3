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
	"time"
)

// 📊 Status is the final state of one mapping in a run
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// 🏷️ Reason explains a failed or skipped entry
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonMissingLocalFile Reason = "missing-local-file"
	ReasonBackupFailed     Reason = "backup-failed"
	ReasonReadLocalFailed  Reason = "read-local-failed"
	ReasonUploadFailed     Reason = "upload-failed"
	ReasonVerifyFailed     Reason = "verify-failed"
	ReasonCancelled        Reason = "cancelled"
	ReasonDryRun           Reason = "dry-run"
)

// 💾 BackupOutcome is what happened to the pre-upload remote file
type BackupOutcome string

const (
	BackupNotRequested     BackupOutcome = ""
	BackupBackedUp         BackupOutcome = "backed-up"
	BackupSkippedNoRemote  BackupOutcome = "skipped-no-remote-file"
	BackupSkippedDuplicate BackupOutcome = "skipped-already-backed-up"
	BackupFailed           BackupOutcome = "backup-failed"
)

// 🔁 RestoreOutcome is what happened when a failed upload was rolled back
type RestoreOutcome string

const (
	RestoreNotAttempted   RestoreOutcome = ""
	RestoreRestored       RestoreOutcome = "restored"
	RestoreRemovedPartial RestoreOutcome = "removed-partial"
	RestoreFailed         RestoreOutcome = "restore-failed"
	RestoreUnavailable    RestoreOutcome = "no-backup-to-restore"
)

// 📄 Entry is the outcome for one enabled mapping. Message carries the
// verbatim error text so reports survive serialization.
type Entry struct {
	Mapping    string         `json:"mapping" yaml:"mapping"`
	Local      string         `json:"local" yaml:"local"`
	Remote     string         `json:"remote" yaml:"remote"`
	RemoteFull string         `json:"remote_full,omitempty" yaml:"remote_full,omitempty"`
	Status     Status         `json:"status" yaml:"status"`
	Reason     Reason         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message    string         `json:"message,omitempty" yaml:"message,omitempty"`
	Err        error          `json:"-" yaml:"-"`
	Backup     BackupOutcome  `json:"backup,omitempty" yaml:"backup,omitempty"`
	BackupPath string         `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	Restore    RestoreOutcome `json:"restore,omitempty" yaml:"restore,omitempty"`
	Bytes      int64          `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Duration   time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Fail marks the entry failed with reason and keeps the error text.
func (e *Entry) Fail(reason Reason, err error) {
	e.Status = StatusFailed
	e.Reason = reason
	e.Err = err
	if err != nil {
		e.Message = err.Error()
	}
}

// 📋 RunReport is the ordered result of one run. Message is set when the
// run failed as a whole, e.g. no session could be opened.
type RunReport struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Profile    string    `json:"profile" yaml:"profile"`
	Preset     string    `json:"preset" yaml:"preset"`
	Stamp      string    `json:"stamp" yaml:"stamp"`
	DryRun     bool      `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	BackupDir  string    `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty"`
	Message    string    `json:"message,omitempty" yaml:"message,omitempty"`
	Err        error     `json:"-" yaml:"-"`
	Entries    []Entry   `json:"entries" yaml:"entries"`
}

// SetErr records a run level failure.
func (r *RunReport) SetErr(err error) {
	r.Err = err
	if err != nil {
		r.Message = err.Error()
	}
}

// Counts tallies entries by status.
func (r *RunReport) Counts() (succeeded, failed, skipped int) {
	for _, e := range r.Entries {
		switch e.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}

// OK reports whether the run had no run level error and no failed entry.
func (r *RunReport) OK() bool {
	if r.Message != "" {
		return false
	}
	_, failed, _ := r.Counts()
	return failed == 0
}

// EntriesFor returns the entries for a mapping name, in order.
func (r *RunReport) EntriesFor(mapping string) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Mapping == mapping {
			out = append(out, e)
		}
	}
	return out
}
