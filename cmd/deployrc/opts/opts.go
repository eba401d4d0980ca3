package opts

import (
	"context"
	"io"

	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/log"
	"github.com/walteh/deployrc/pkg/preset"
	"github.com/walteh/deployrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config     *config.Config
	Router     *remote.Router
	Console    *log.Logger
	UserLogger *log.UserLogger
	Prompter   *Prompter
	In         io.Reader
	Out        io.Writer
	Closers    []io.Closer
}

// 🎯 Profile returns a copy of the named profile with its password filled
// in, prompting when neither a literal nor an environment variable is set.
func (o *RootOpts) Profile(ctx context.Context, name string) (config.Profile, error) {
	p, err := o.Config.Profile(name)
	if err != nil {
		return config.Profile{}, err
	}
	profile := *p

	if secret := profile.Credentials.Secret(); secret != "" {
		profile.Credentials.Password = secret
		return profile, nil
	}
	if profile.Credentials.Username == "" || o.Prompter == nil {
		return profile, nil
	}

	password, err := o.Prompter.PromptPassword("Password for " + profile.Credentials.Username + "@" + profile.Host + ": ")
	if err != nil {
		return config.Profile{}, errors.Errorf("reading password: %w", err)
	}
	profile.Credentials.Password = password
	return profile, nil
}

// Preset opens a preset from the configured presets directory.
func (o *RootOpts) Preset(name string) (*preset.Preset, error) {
	return preset.Open(o.Config.Settings.PresetsDir, name, o.Config.Settings.Ignore)
}

// Close releases everything opened for the command, newest first. Closers
// run once; later calls do nothing.
func (o *RootOpts) Close() error {
	closers := o.Closers
	o.Closers = nil

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
