/*
Package operation implements the deploy engine: resolve, back up, upload.

	+-------------+      +-------------+      +-------------+
	|   Resolve   | ---> |   Backup    | ---> |   Upload    |
	| (no network)|      | (per file)  |      | (+ verify)  |
	+-------------+      +-------------+      +------+------+
	                                                 |
	                                          +------+------+
	                                          |  RunReport  |
	                                          +-------------+

🎯 Purpose:
- Match enabled mappings to preset files, exactly and case sensitively
- Back up each remote target before it is overwritten
- Upload one file at a time over one session, in mapping order
- Report one entry per enabled mapping

🔄 Flow:
1. Resolve reads the preset folder from disk and splits mappings into
   operations and findings (missing-local-file)
2. No operations means no connection at all
3. One session is opened for the run and closed on every path
4. Each operation: backup if flagged, read local bytes, upload, verify size
5. A failed upload or verification is rolled back from the backup when
   restore is enabled

⚡ Failure isolation:
A failing operation marks its own entry and the run moves on. Only a
failed connection fails the run as a whole.

🔍 Example:

	orch, err := operation.NewOrchestrator(operation.OptionsFromSettings(router, cfg.Settings))
	if err != nil {
		return err
	}
	report := orch.Run(ctx, *profile, p, cfg.Mappings)
	if !report.OK() {
		// inspect report.Entries
	}
*/
package operation
