package commands

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"gitlab.com/tozd/go/errors"
)

// NewLsCmd creates a new ls command
func NewLsCmd(ro *opts.RootOpts) *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a remote directory under the profile root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			profile, err := ro.Profile(ctx, profileName)
			if err != nil {
				return err
			}

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			full := profile.FullPath(dir)

			session, err := ro.Router.Connect(ctx, profile)
			if err != nil {
				return err
			}
			defer session.Close()

			entries, err := session.List(ctx, full)
			if err != nil {
				return errors.Errorf("listing %s: %w", full, err)
			}

			rows := [][]string{{"NAME", "SIZE", "MODIFIED"}}
			for _, e := range entries {
				name, size := e.Name, strconv.FormatInt(e.Size, 10)
				if e.IsDir {
					name, size = name+"/", "-"
				}
				modified := ""
				if !e.ModTime.IsZero() {
					modified = e.ModTime.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{name, size, modified})
			}

			ro.UserLogger.LogStateChange(profile.Name + ":" + full)
			return ro.UserLogger.Table(rows)
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to list (default: active_profile)")

	return cmd
}
