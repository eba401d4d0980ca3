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

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/commands"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdin, os.Stdout, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run executes the command line against the process streams
func run(ctx context.Context, in io.Reader, out io.Writer, args []string) error {
	return execute(ctx, &opts.RootOpts{In: in, Out: out}, args)
}

// execute runs one command with ro, releases everything it opened and prints
// any error not already shown
func execute(ctx context.Context, ro *opts.RootOpts, args []string) error {
	rootCmd := newRootCmd(ro)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails, so closing happens here
	if cerr := ro.Close(); cerr != nil {
		if err == nil {
			err = cerr
		} else {
			zerolog.Ctx(ctx).Warn().Err(cerr).Msg("closing resources")
		}
	}
	if err != nil && !errors.Is(err, commands.ErrReported) {
		log.NewUserLogger(ctx, ro.Out).LogValidation(false, "Command failed", err)
	}
	return err
}

// newRootCmd builds the command tree around ro
func newRootCmd(ro *opts.RootOpts) *cobra.Command {
	out := ro.Out

	rootCmd := &cobra.Command{
		Use:   "deployrc",
		Short: "Deploy preset files to game servers over FTP, FTPS and SFTP",
		Long: `deployrc uploads the files of a local preset folder to a remote server profile.
Every remote file is backed up before it is overwritten, uploads are verified,
and each mapping gets its own outcome in the run report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			ctx, err := newRootOpts(cmd.Context(), ro)
			if err != nil {
				return err
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	// Add shared flags
	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewUploadCmd(ro),
		commands.NewPreviewCmd(ro),
		commands.NewTestCmd(ro),
		commands.NewLsCmd(ro),
		commands.NewPresetsCmd(ro),
		commands.NewProfilesCmd(ro),
		commands.NewHistoryCmd(ro),
		newVersionCmd(out),
	)

	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}
