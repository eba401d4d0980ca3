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

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent entries
	nameWidth   = 45 // base width for the remote path
	stateWidth  = 10 // width for the status text
	reasonWidth = 20 // width for the reason or backup outcome
)

// 🎯 FormatEntryLine formats an entry as a fixed width colored line
func FormatEntryLine(e Entry) string {
	var prefix string
	switch e.Status {
	case StatusSucceeded:
		prefix = color.GreenString("✓")
	case StatusFailed:
		prefix = color.RedString("✗")
	case StatusSkipped:
		prefix = color.YellowString("⟳")
	default:
		prefix = color.HiBlackString("-")
	}

	detail := string(e.Reason)
	if e.Status == StatusSucceeded {
		detail = string(e.Backup)
	}

	namePart := fmt.Sprintf("%-*s", nameWidth, e.Remote)
	statePart := fmt.Sprintf("%-*s", stateWidth, e.Status)
	detailPart := fmt.Sprintf("%-*s", reasonWidth, detail)

	line := fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", fileIndent),
		prefix,
		namePart,
		statePart,
		detailPart,
	)
	if e.Restore != RestoreNotAttempted {
		line += " " + color.HiBlackString("restore: %s", e.Restore)
	}
	return line
}
