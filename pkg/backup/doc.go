/*
Package backup saves remote files before deployrc overwrites them.

	backups/
	└── <profile>/
	    └── <preset>/
	        └── <stamp>/            one directory per run
	            └── <remote path>   byte copy of the pre-run remote file

Backups are write-once. Files are created exclusively, a run never reuses
another run's directory, and nothing here ever deletes a backup.

Outcomes:
  - backed-up: the remote file was copied
  - skipped-no-remote-file: the target did not exist yet, nothing to save
  - skipped-already-backed-up: an earlier mapping in the same run saved it
  - backup-failed: the download or the local write failed
*/
package backup
