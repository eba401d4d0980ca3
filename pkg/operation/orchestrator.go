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
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/backup"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/preset"
	"github.com/walteh/deployrc/pkg/remote"
	"github.com/walteh/deployrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// StampFormat names the per run backup directory.
const StampFormat = "20060102_150405"

// 🔧 Options contains configuration for the orchestrator
type Options struct {
	// Client opens the transfer session for a run
	Client remote.Client
	// BackupRoot is the directory backups are written under
	BackupRoot string
	// Verify reads the remote size back after every upload
	Verify bool
	// Restore rolls a failed upload back to the pre-upload remote state
	Restore bool
	// CreateRemoteDirs creates missing remote parent directories before uploading
	CreateRemoteDirs bool
	// DryRun resolves and reports without connecting
	DryRun bool
	// Now is the clock, time.Now when nil
	Now func() time.Time
	// OnEntry is called as each entry reaches its final state
	OnEntry func(status.Entry)
}

// OptionsFromSettings fills the behavior flags from settings.
func OptionsFromSettings(client remote.Client, s config.Settings) Options {
	return Options{
		Client:           client,
		BackupRoot:       s.BackupsDir,
		Verify:           s.ShouldVerify(),
		Restore:          s.ShouldRestore(),
		CreateRemoteDirs: s.CreateRemoteDirs,
	}
}

// 🎮 Orchestrator runs one preset against one profile, one file at a time
type Orchestrator struct {
	opts Options
}

// 🏭 NewOrchestrator creates a new orchestrator with the given options
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.Errorf("client is required")
	}
	if opts.BackupRoot == "" {
		return nil, errors.Errorf("backup root is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{opts: opts}, nil
}

// 🚀 Run resolves the mappings against the preset and uploads every matched
// file in mapping order over a single session. Failures are recorded per
// entry and never stop later entries. Errors never escape; they land in the
// report.
func (o *Orchestrator) Run(ctx context.Context, profile config.Profile, p *preset.Preset, mappings []config.Mapping) *status.RunReport {
	started := o.opts.Now()
	report := &status.RunReport{
		RunID:     uuid.NewString(),
		Profile:   profile.Name,
		Preset:    p.Name,
		Stamp:     started.Format(StampFormat),
		DryRun:    o.opts.DryRun,
		StartedAt: started,
	}
	defer func() { report.FinishedAt = o.opts.Now() }()

	logger := zerolog.Ctx(ctx).With().
		Str("run", report.RunID).
		Str("profile", profile.Name).
		Str("preset", p.Name).
		Logger()
	ctx = logger.WithContext(ctx)

	res, err := Resolve(ctx, profile, p, mappings)
	if err != nil {
		report.SetErr(err)
		return report
	}

	report.Entries = make([]status.Entry, res.Enabled)
	for _, f := range res.Findings {
		e := &report.Entries[f.Index]
		e.Mapping, e.Local, e.Remote = f.Mapping, f.Local, f.Remote
		e.Fail(f.Reason, errors.New(f.Message))
		o.notify(*e)
	}
	for _, op := range res.Operations {
		e := &report.Entries[op.Index]
		e.Mapping, e.Local, e.Remote, e.RemoteFull = op.Mapping, op.Local, op.RemotePath, op.RemoteFullPath
	}

	if len(res.Operations) == 0 {
		logger.Info().Msg("nothing to upload")
		return report
	}

	if o.opts.DryRun {
		for _, op := range res.Operations {
			e := &report.Entries[op.Index]
			e.Status, e.Reason = status.StatusSkipped, status.ReasonDryRun
			o.notify(*e)
		}
		return report
	}

	backups, err := backup.NewRun(o.opts.BackupRoot, profile.Name, p.Name, report.Stamp)
	if err != nil {
		report.SetErr(err)
		report.Entries = findingsOnly(report.Entries)
		return report
	}

	if err := ctx.Err(); err != nil {
		report.SetErr(errors.Errorf("run cancelled before connecting: %w", err))
		report.Entries = findingsOnly(report.Entries)
		return report
	}

	session, err := o.opts.Client.Connect(ctx, profile)
	if err != nil {
		logger.Error().Err(err).Msg("connection failed, aborting run")
		report.SetErr(err)
		report.Entries = findingsOnly(report.Entries)
		return report
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing session")
		}
	}()

	x := &execution{
		opts:    o.opts,
		session: session,
		backups: backups,
		written: map[string][]byte{},
	}
	for _, op := range res.Operations {
		e := &report.Entries[op.Index]
		if err := ctx.Err(); err != nil {
			e.Fail(status.ReasonCancelled, err)
			o.notify(*e)
			continue
		}
		x.execute(ctx, op, e)
		o.notify(*e)
	}

	report.BackupDir = backups.Dir()
	return report
}

func (o *Orchestrator) notify(e status.Entry) {
	if o.opts.OnEntry != nil {
		o.opts.OnEntry(e)
	}
}

// findingsOnly drops the entries of operations that never started.
func findingsOnly(entries []status.Entry) []status.Entry {
	out := []status.Entry{}
	for _, e := range entries {
		if e.Status != "" {
			out = append(out, e)
		}
	}
	return out
}

// execution is the state of one connected run
type execution struct {
	opts    Options
	session remote.Session
	backups *backup.Run
	// written holds what this run last uploaded per remote path
	written map[string][]byte
}

func (x *execution) execute(ctx context.Context, op Operation, e *status.Entry) {
	logger := zerolog.Ctx(ctx).With().Str("mapping", op.Mapping).Str("remote", op.RemoteFullPath).Logger()
	ctx = logger.WithContext(ctx)

	start := x.opts.Now()
	defer func() { e.Duration = x.opts.Now().Sub(start) }()

	var saved backup.Result
	if op.Backup {
		saved = x.backups.Backup(ctx, x.session, op.RemotePath, op.RemoteFullPath)
		e.Backup, e.BackupPath = saved.Outcome, saved.Path
		if saved.Outcome == status.BackupFailed {
			logger.Error().Err(saved.Err).Msg("backup failed, not uploading")
			e.Fail(status.ReasonBackupFailed, saved.Err)
			return
		}
	}

	content, err := os.ReadFile(op.LocalPath)
	if err != nil {
		e.Fail(status.ReasonReadLocalFailed, errors.Errorf("reading %s: %w", op.LocalPath, err))
		return
	}

	if x.opts.CreateRemoteDirs {
		if err := x.session.MakeDirAll(ctx, path.Dir(op.RemoteFullPath)); err != nil {
			e.Fail(status.ReasonUploadFailed, errors.Errorf("creating remote directory: %w", err))
			return
		}
	}

	if err := x.session.Upload(ctx, op.RemoteFullPath, content); err != nil {
		logger.Error().Err(err).Msg("upload failed")
		reason := status.ReasonUploadFailed
		if ctx.Err() != nil {
			reason = status.ReasonCancelled
		}
		e.Fail(reason, err)
		x.rollback(ctx, op, saved, e)
		return
	}

	if x.opts.Verify {
		if err := x.verify(ctx, op.RemoteFullPath, int64(len(content))); err != nil {
			logger.Error().Err(err).Msg("verification failed")
			e.Fail(status.ReasonVerifyFailed, err)
			x.rollback(ctx, op, saved, e)
			return
		}
	}

	x.written[op.RemoteFullPath] = content
	e.Status = status.StatusSucceeded
	e.Bytes = int64(len(content))
	logger.Info().Int("bytes", len(content)).Msg("uploaded")
}

// verify compares the remote size with what was sent. A server that cannot
// report sizes is trusted.
func (x *execution) verify(ctx context.Context, full string, want int64) error {
	got, err := x.session.Size(ctx, full)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return errors.Errorf("remote file missing after upload: %w", err)
		}
		zerolog.Ctx(ctx).Warn().Err(err).Msg("cannot read remote size, skipping verification")
		return nil
	}
	if got != want {
		return errors.Errorf("remote size %d does not match local size %d", got, want)
	}
	return nil
}

// rollback puts the remote path back to what it was before this operation.
func (x *execution) rollback(ctx context.Context, op Operation, saved backup.Result, e *status.Entry) {
	if !x.opts.Restore {
		return
	}
	logger := zerolog.Ctx(ctx)
	ctx = context.WithoutCancel(ctx)

	var err error
	switch prev, ok := x.written[op.RemoteFullPath]; {
	case ok:
		err = x.session.Upload(ctx, op.RemoteFullPath, prev)
		e.Restore = status.RestoreRestored
	case saved.Existed:
		err = x.session.Upload(ctx, op.RemoteFullPath, saved.Content)
		e.Restore = status.RestoreRestored
	case saved.Outcome == status.BackupSkippedNoRemote || saved.Outcome == status.BackupSkippedDuplicate:
		err = x.session.Delete(ctx, op.RemoteFullPath)
		if errors.Is(err, remote.ErrNotFound) {
			err = nil
		}
		e.Restore = status.RestoreRemovedPartial
	default:
		e.Restore = status.RestoreUnavailable
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("restore failed")
		e.Restore = status.RestoreFailed
		e.Message += "; restore failed: " + err.Error()
		return
	}
	logger.Info().Str("restore", string(e.Restore)).Msg("rolled back failed upload")
}
