/*
Package status defines the run report for deployrc and formats it for people.

	            +-------------+
	            |  RunReport  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +-----+-----+
	|  Entries  |           | Formatter |
	| (ordered) |           |  (UI/UX)  |
	+-----------+           +-----------+

🎯 Purpose:
- One Entry per enabled mapping, in mapping order
- Every entry ends Succeeded, Failed or Skipped, with a Reason when not Succeeded
- Error text is kept verbatim in Message

🏷️ Reasons:
- missing-local-file: the preset has no file with the mapping's local name
- backup-failed: the remote file could not be saved, the upload was not attempted
- read-local-failed: the preset file vanished or could not be read
- upload-failed: the server refused or dropped the transfer
- verify-failed: the remote size does not match what was sent
- cancelled: the run was interrupted before this entry started
- dry-run: nothing was sent

A run that cannot open a session has Message set and no network entries.
*/
package status
