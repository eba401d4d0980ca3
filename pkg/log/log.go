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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/status"
)

// 📦 RunHeader describes the run being printed
type RunHeader struct {
	Profile  string // Profile name
	Address  string // host:port
	Protocol string // transfer protocol
	Preset   string // Preset name
	DryRun   bool   // Whether nothing will be sent
}

// 🎯 Logger prints run progress for people and mirrors it to zerolog
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	formatter status.EntryFormatter
	mu        sync.Mutex
	current   *RunHeader
	entries   []status.Entry
}

// 🏭 New creates a new logger writing lines to console
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:      zlog,
		console:   console,
		formatter: status.NewDefaultEntryFormatter(),
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 StartRun prints the run header
func (l *Logger) StartRun(h RunHeader) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &h
	l.entries = nil

	verb := "uploading"
	if h.DryRun {
		verb = "previewing"
	}
	fmt.Fprintf(l.console, "[%s preset %s]\n", verb, color.New(color.FgCyan).Sprint(h.Preset))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(h.Profile),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(h.Protocol+"://"+h.Address))

	l.zlog.Info().
		Str("profile", h.Profile).
		Str("address", h.Address).
		Str("protocol", h.Protocol).
		Str("preset", h.Preset).
		Bool("dry_run", h.DryRun).
		Msg("starting run")
}

// 📝 LogEntry prints one finished entry
func (l *Logger) LogEntry(e status.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)

	fmt.Fprintln(l.console, status.FormatEntryLine(e))

	ev := l.zlog.Info()
	if e.Status == status.StatusFailed {
		ev = l.zlog.Error()
	}
	ev.Str("mapping", e.Mapping).
		Str("remote", e.Remote).
		Str("status", string(e.Status)).
		Str("reason", string(e.Reason)).
		Str("backup", string(e.Backup)).
		Str("restore", string(e.Restore)).
		Int64("bytes", e.Bytes).
		Str("error", e.Message).
		Msg("entry finished")
}

// 📝 EndRun prints the run summary
func (l *Logger) EndRun(r *status.RunReport) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console)
	summary := l.formatter.FormatSummary(r)
	switch {
	case r.Message != "":
		fmt.Fprintln(l.console, color.New(color.FgRed).Sprint(summary))
	case !r.OK():
		fmt.Fprintln(l.console, color.New(color.FgYellow).Sprint(summary))
	default:
		fmt.Fprintln(l.console, color.New(color.FgGreen).Sprint(summary))
	}
	if r.BackupDir != "" {
		fmt.Fprintf(l.console, "%s %s\n", color.New(color.Faint).Sprint("backups:"), r.BackupDir)
	}

	succeeded, failed, skipped := r.Counts()
	l.zlog.Info().
		Str("run", r.RunID).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("skipped", skipped).
		Int("printed", len(l.entries)).
		Str("error", r.Message).
		Msg("run complete")

	l.current = nil
	l.entries = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("deployrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
