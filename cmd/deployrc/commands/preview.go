package commands

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/operation"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// PreviewRow is one enabled mapping checked against a preset
type PreviewRow struct {
	Mapping    string `json:"mapping" yaml:"mapping"`
	Local      string `json:"local" yaml:"local"`
	Remote     string `json:"remote" yaml:"remote"`
	RemoteFull string `json:"remote_full" yaml:"remote_full"`
	Backup     bool   `json:"backup" yaml:"backup"`
	State      string `json:"state" yaml:"state"`
}

// Preview rows states.
const (
	StateOK      = "OK"
	StateMissing = "MISSING"
)

// PreviewRows lists every enabled mapping in order with its match state.
func PreviewRows(res *operation.Resolution, profile config.Profile) []PreviewRow {
	rows := make([]PreviewRow, res.Enabled)
	for _, op := range res.Operations {
		rows[op.Index] = PreviewRow{
			Mapping:    op.Mapping,
			Local:      op.Local,
			Remote:     op.RemotePath,
			RemoteFull: op.RemoteFullPath,
			Backup:     op.Backup,
			State:      StateOK,
		}
	}
	for _, f := range res.Findings {
		rows[f.Index] = PreviewRow{
			Mapping:    f.Mapping,
			Local:      f.Local,
			Remote:     f.Remote,
			RemoteFull: profile.FullPath(f.Remote),
			State:      StateMissing,
		}
	}
	return rows
}

// NewPreviewCmd creates a new preview command
func NewPreviewCmd(ro *opts.RootOpts) *cobra.Command {
	var (
		profileName string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "preview <preset>",
		Short: "Show which mappings a preset satisfies, without connecting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := ro.Preset(args[0])
			if err != nil {
				return err
			}

			profile := config.Profile{Root: "/"}
			if cp, err := ro.Config.Profile(profileName); err == nil {
				profile = *cp
			} else if profileName != "" {
				return err
			}

			res, err := operation.Resolve(ctx, profile, p, ro.Config.Mappings)
			if err != nil {
				return err
			}
			rows := PreviewRows(res, profile)

			switch output {
			case "json":
				enc := json.NewEncoder(ro.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml":
				enc := yaml.NewEncoder(ro.Out)
				defer enc.Close()
				return enc.Encode(rows)
			case "", "table":
			default:
				return errors.Errorf("unknown output format %q, options: table, json, yaml", output)
			}

			table := [][]string{{"MAPPING", "LOCAL", "REMOTE", "BACKUP", "STATE"}}
			for _, r := range rows {
				table = append(table, []string{r.Mapping, r.Local, r.RemoteFull, strconv.FormatBool(r.Backup), r.State})
			}
			if err := ro.UserLogger.Table(table); err != nil {
				return err
			}
			if len(res.Findings) > 0 {
				ro.UserLogger.LogValidation(false, strconv.Itoa(len(res.Findings))+" mapping(s) have no local file in preset "+p.Name, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile used for remote paths")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")

	return cmd
}
