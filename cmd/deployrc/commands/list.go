package commands

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/preset"
)

// NewPresetsCmd creates a new presets command
func NewPresetsCmd(ro *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List preset folders and their file counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			names, err := preset.List(ro.Config.Settings.PresetsDir)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				ro.UserLogger.LogValidation(false, "no presets in "+ro.Config.Settings.PresetsDir, nil)
				return nil
			}

			rows := [][]string{{"PRESET", "FILES"}}
			for _, name := range names {
				p, err := ro.Preset(name)
				if err != nil {
					return err
				}
				files, err := p.Files(ctx)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, strconv.Itoa(len(files))})
			}
			return ro.UserLogger.Table(rows)
		},
	}
}

// ProfileRows renders profiles as table rows, marking the active one.
func ProfileRows(cfg *config.Config) [][]string {
	rows := [][]string{{"PROFILE", "HOST", "PROTOCOL", "ROOT", "USER", ""}}
	for _, p := range cfg.Profiles {
		active := ""
		if p.Name == cfg.ActiveProfile {
			active = "(active)"
		}
		rows = append(rows, []string{p.Name, p.Address(), string(p.Protocol), p.Root, p.Credentials.Username, active})
	}
	return rows
}

// NewProfilesCmd creates a new profiles command
func NewProfilesCmd(ro *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured server profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.UserLogger.Table(ProfileRows(ro.Config))
		},
	}
}
