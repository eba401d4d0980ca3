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

// Package history keeps a local journal of finished runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/status"
	"gitlab.com/tozd/go/errors"

	_ "modernc.org/sqlite"
)

// 📜 Run is one journaled run with its totals
type Run struct {
	RunID      string
	Profile    string
	Preset     string
	Stamp      string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	BackupDir  string
	Message    string
	Succeeded  int
	Failed     int
	Skipped    int
}

// OK reports whether the run had no run level error and no failed entry.
func (r Run) OK() bool {
	return r.Message == "" && r.Failed == 0
}

// 🗃️ Store is the run journal
type Store struct {
	db *sql.DB
}

// 🏭 Open opens or creates the journal at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Errorf("creating history directory: %w", err)
	}

	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Errorf("opening history database: %w", err)
	}
	// one writer, runs are sequential
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func buildDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("resolving history path: %w", err)
	}
	abs = strings.ReplaceAll(abs, "\\", "/")
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", abs), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return errors.Errorf("creating migrations table: %w", err)
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM migrations")
	if err != nil {
		return errors.Errorf("reading migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return errors.Errorf("reading migrations: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Errorf("reading migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Errorf("beginning migration %s: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return errors.Errorf("executing migration %s: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version, applied_at) VALUES (?, ?)", m.Version, time.Now().Unix()); err != nil {
			tx.Rollback()
			return errors.Errorf("recording migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return errors.Errorf("committing migration %s: %w", m.Version, err)
		}
		zerolog.Ctx(ctx).Debug().Str("version", m.Version).Msg("applied history migration")
	}
	return nil
}

// 📝 Record journals a finished run and its entries.
func (s *Store) Record(ctx context.Context, r *status.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("recording run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, profile, preset, stamp, dry_run, started_at, finished_at, backup_dir, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Profile, r.Preset, r.Stamp, r.DryRun,
		r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(), r.BackupDir, r.Message,
	); err != nil {
		return errors.Errorf("recording run %s: %w", r.RunID, err)
	}

	for i, e := range r.Entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (run_id, position, mapping, local, remote, remote_full, status, reason, message,
				backup, backup_path, restore_outcome, bytes, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, e.Mapping, e.Local, e.Remote, e.RemoteFull, string(e.Status), string(e.Reason), e.Message,
			string(e.Backup), e.BackupPath, string(e.Restore), e.Bytes, int64(e.Duration),
		); err != nil {
			return errors.Errorf("recording entry %s: %w", e.Mapping, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("recording run %s: %w", r.RunID, err)
	}
	return nil
}

// 🔍 Recent returns the newest runs first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.profile, r.preset, r.stamp, r.dry_run, r.started_at, r.finished_at, r.backup_dir, r.message,
			COALESCE(SUM(e.status = 'succeeded'), 0),
			COALESCE(SUM(e.status = 'failed'), 0),
			COALESCE(SUM(e.status = 'skipped'), 0)
		FROM runs r
		LEFT JOIN entries e ON e.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.RunID, &r.Profile, &r.Preset, &r.Stamp, &r.DryRun, &started, &finished,
			&r.BackupDir, &r.Message, &r.Succeeded, &r.Failed, &r.Skipped); err != nil {
			return nil, errors.Errorf("reading run: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		r.FinishedAt = time.Unix(0, finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("listing runs: %w", err)
	}
	return out, nil
}

// Entries returns the entries of one run in report order.
func (s *Store) Entries(ctx context.Context, runID string) ([]status.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mapping, local, remote, remote_full, status, reason, message, backup, backup_path, restore_outcome, bytes, duration_ns
		FROM entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, errors.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var out []status.Entry
	for rows.Next() {
		var (
			e                           status.Entry
			st, reason, backup, restore string
			durationNS                  int64
		)
		if err := rows.Scan(&e.Mapping, &e.Local, &e.Remote, &e.RemoteFull, &st, &reason, &e.Message,
			&backup, &e.BackupPath, &restore, &e.Bytes, &durationNS); err != nil {
			return nil, errors.Errorf("reading entry: %w", err)
		}
		e.Status = status.Status(st)
		e.Reason = status.Reason(reason)
		e.Backup = status.BackupOutcome(backup)
		e.Restore = status.RestoreOutcome(restore)
		e.Duration = time.Duration(durationNS)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("listing entries: %w", err)
	}
	return out, nil
}
