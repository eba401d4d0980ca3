package history

// migration is one schema step, applied once in order
type migration struct {
	Version string
	Up      string
}

var migrations = []migration{
	{
		Version: "001_runs",
		Up: `
			CREATE TABLE runs (
				run_id TEXT PRIMARY KEY,
				profile TEXT NOT NULL,
				preset TEXT NOT NULL,
				stamp TEXT NOT NULL,
				dry_run INTEGER NOT NULL DEFAULT 0,
				started_at INTEGER NOT NULL,
				finished_at INTEGER NOT NULL,
				backup_dir TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX idx_runs_started_at ON runs(started_at);
		`,
	},
	{
		Version: "002_entries",
		Up: `
			CREATE TABLE entries (
				run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				mapping TEXT NOT NULL,
				local TEXT NOT NULL,
				remote TEXT NOT NULL,
				remote_full TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				backup TEXT NOT NULL DEFAULT '',
				backup_path TEXT NOT NULL DEFAULT '',
				restore_outcome TEXT NOT NULL DEFAULT '',
				bytes INTEGER NOT NULL DEFAULT 0,
				duration_ns INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (run_id, position)
			);
		`,
	},
}
