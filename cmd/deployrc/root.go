package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/deployrc/cmd/deployrc/opts"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/log"
	"github.com/walteh/deployrc/pkg/remote"
	"github.com/walteh/deployrc/pkg/remote/ftp"
	"github.com/walteh/deployrc/pkg/remote/sftp"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debugFlag  bool
	trustHost  bool
)

// skipConfig marks commands that run without a config file
const skipConfig = "deployrc/skip-config"

// newRootOpts loads the config and wires logging and transports into ro. A
// router already set on ro is kept.
func newRootOpts(ctx context.Context, ro *opts.RootOpts) (context.Context, error) {
	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return ctx, errors.Errorf("loading config: %w", err)
	}

	logger, closer, err := setupLogging(cfg.Settings.LogsDir)
	if err != nil {
		return ctx, err
	}
	ctx = logger.WithContext(ctx)

	if ro.Router == nil {
		ftpOpts := ftp.Options{Timeout: cfg.Settings.Timeout()}
		if debugFlag {
			ftpOpts.DebugOutput = os.Stderr
		}

		router := remote.NewRouter()
		ftp.New(ftpOpts).Register(router)
		sftp.New(sftp.Options{
			Timeout:         cfg.Settings.Timeout(),
			TrustOnFirstUse: trustHost,
		}).Register(router)
		ro.Router = router
	}

	ro.Config = cfg
	ro.Console = log.New(ro.Out, logger)
	ro.UserLogger = log.NewUserLogger(ctx, ro.Out)
	ro.Prompter = opts.NewPrompter(ro.In, ro.Out)
	ro.Closers = append(ro.Closers, closer)

	return ctx, nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", ".deployrc.hcl", "config file path")
	cmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&trustHost, "trust-new-host", false, "record unknown SSH host keys instead of rejecting them")
}

// setupLogging builds the process logger. The log file always records info
// and above; the console only shows warnings unless debugging.
func setupLogging(logsDir string) (zerolog.Logger, io.Closer, error) {
	fileLevel, consoleLevel := zerolog.InfoLevel, zerolog.WarnLevel
	if debugFlag {
		fileLevel, consoleLevel = zerolog.DebugLevel, zerolog.DebugLevel
	}
	logger, closer, err := log.Setup(log.Options{
		Level:        fileLevel,
		ConsoleLevel: consoleLevel,
		Dir:          logsDir,
	})
	if err != nil {
		return zerolog.Nop(), nil, errors.Errorf("setting up logging: %w", err)
	}
	return logger, closer, nil
}
