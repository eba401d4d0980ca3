package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/history"
	"github.com/walteh/deployrc/pkg/log"
	"github.com/walteh/deployrc/pkg/operation"
	"github.com/walteh/deployrc/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// ErrReported marks a failure whose details were already printed
var ErrReported = errors.Base("failure already reported")

// NewUploadCmd creates a new upload command
func NewUploadCmd(ro *opts.RootOpts) *cobra.Command {
	var (
		profileName string
		yes         bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "upload <preset>",
		Short: "Upload a preset to a profile",
		Long: `Upload sends every enabled mapping of a preset to the selected profile.
It will:
1. Match mappings against the files currently in the preset folder
2. Back up each remote file before overwriting it
3. Upload and verify one file at a time
4. Report one outcome per enabled mapping`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "upload").Logger().WithContext(cmd.Context())

			p, err := ro.Preset(args[0])
			if err != nil {
				return err
			}

			var profile config.Profile
			if dryRun {
				cp, err := ro.Config.Profile(profileName)
				if err != nil {
					return err
				}
				profile = *cp
			} else {
				if profile, err = ro.Profile(ctx, profileName); err != nil {
					return err
				}
			}

			if !yes && !dryRun {
				ok, err := ro.Prompter.PromptConfirm(fmt.Sprintf("Upload preset '%s' to profile '%s'?", p.Name, profile.Name))
				if err != nil {
					return err
				}
				if !ok {
					ro.UserLogger.LogStateChange("Upload cancelled")
					return nil
				}
			}

			o := operation.OptionsFromSettings(ro.Router, ro.Config.Settings)
			o.DryRun = dryRun
			o.OnEntry = ro.Console.LogEntry
			orch, err := operation.NewOrchestrator(o)
			if err != nil {
				return errors.Errorf("creating orchestrator: %w", err)
			}

			ro.Console.StartRun(log.RunHeader{
				Profile:  profile.Name,
				Address:  profile.Address(),
				Protocol: string(profile.Protocol),
				Preset:   p.Name,
				DryRun:   dryRun,
			})
			report := orch.Run(ctx, profile, p, ro.Config.Mappings)
			ro.Console.EndRun(report)

			// interrupted runs are journaled too
			if err := record(context.WithoutCancel(ctx), ro.Config.Settings.HistoryDB, report); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("run not added to history")
			}

			if !report.OK() {
				return errors.Errorf("run %s: %w", report.Stamp, ErrReported)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to upload to (default: active_profile)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and report without connecting")

	return cmd
}

func record(ctx context.Context, path string, report *status.RunReport) error {
	if path == "" {
		return nil
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, report)
}
