package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// maxConnTests bounds concurrent connection tests
const maxConnTests = 4

// ConnResult is the outcome of one connection test
type ConnResult struct {
	Profile string
	Dir     string
	Err     error
}

// Check connects, reads the working directory and disconnects.
func Check(ctx context.Context, client remote.Client, profile config.Profile) ConnResult {
	res := ConnResult{Profile: profile.Name}

	session, err := client.Connect(ctx, profile)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if err := session.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("profile", profile.Name).Msg("closing session")
		}
	}()

	res.Dir, res.Err = session.CurrentDir(ctx)
	return res
}

// CheckAll tests every profile, a few at a time. Results keep profile order.
func CheckAll(ctx context.Context, client remote.Client, profiles []config.Profile) []ConnResult {
	results := make([]ConnResult, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConnTests)
	for i, p := range profiles {
		g.Go(func() error {
			results[i] = Check(gctx, client, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// NewTestCmd creates a new test command
func NewTestCmd(ro *opts.RootOpts) *cobra.Command {
	var (
		profileName string
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that a profile can connect and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			names := []string{profileName}
			if all {
				names = ro.Config.ProfileNames()
			}

			// credentials are collected up front so prompts never interleave
			profiles := make([]config.Profile, 0, len(names))
			for _, name := range names {
				p, err := ro.Profile(ctx, name)
				if err != nil {
					return err
				}
				profiles = append(profiles, p)
			}

			failed := 0
			for _, res := range CheckAll(ctx, ro.Router, profiles) {
				if res.Err != nil {
					failed++
					ro.UserLogger.LogValidation(false, fmt.Sprintf("%s: connection failed", res.Profile), res.Err)
					continue
				}
				ro.UserLogger.LogValidation(true, fmt.Sprintf("%s: connected, remote directory %s", res.Profile, res.Dir), nil)
			}

			if failed > 0 {
				return errors.Errorf("%d of %d profile(s) failed: %w", failed, len(profiles), ErrReported)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "profile to test (default: active_profile)")
	cmd.Flags().BoolVar(&all, "all", false, "test every profile")

	return cmd
}
