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
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/walteh/metafiles/cmd/mf/commands"
	"github.com/walteh/metafiles/cmd/mf/opts"
	"github.com/walteh/metafiles/pkg/config"
	"github.com/walteh/metafiles/pkg/log"
	"github.com/walteh/metafiles/pkg/remote"
	"github.com/walteh/metafiles/pkg/remote/github"

	_ "github.com/walteh/metafiles/pkg/remote/git"
)

type rootFlags struct {
	configFile string
	debug      bool
}

// newRootCmd wires every command to o. Fields of o left empty are filled
// from the environment before a command runs.
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "mf",
		Short: "Keep dotfiles in sync across machines",
		Long: `mf tracks files of this machine in a version controlled store. Every
machine keeps its own branch; sync merges them through a shared branch.`,
		Version:       FormatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, o, flags)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}")

	addRootFlags(cmd, o, flags)

	cmd.AddCommand(
		commands.NewInitCmd(o),
		commands.NewJoinCmd(o),
		commands.NewAddCmd(o),
		commands.NewInheritCmd(o),
		commands.NewSyncCmd(o),
	)
	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts, flags *rootFlags) {
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file path (default ~/.files/config.{hcl,yaml,json,toml})")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&o.Confirm, "confirm", "c", false, "ask before changing anything")
}

// setup loads the configuration and fills in o before a command runs.
func setup(cmd *cobra.Command, o *opts.RootOpts, flags *rootFlags) error {
	ctx := cmd.Context()

	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}

	cfg, err := config.Resolve(ctx, o.Fs, config.Options{Path: flags.configFile})
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	o.Config = cfg

	logger := setupLogging(flags.debug, cfg.LogFile)
	ctx = logger.WithContext(ctx)

	if o.Console == nil {
		o.Console = log.New(cmd.OutOrStdout(), logger)
	}
	ctx = log.NewContext(ctx, o.Console)

	if o.Cwd == "" {
		if o.Cwd, err = os.Getwd(); err != nil {
			return errors.Errorf("getting working directory: %w", err)
		}
	}

	if o.Prompt == nil {
		o.Prompt = func(question string) (bool, error) {
			return pterm.DefaultInteractiveConfirm.Show(question)
		}
	}

	if o.Resolvers == nil {
		var ghOpts []github.Option
		if cfg.GitHubSSH {
			ghOpts = append(ghOpts, github.WithSSH())
		}
		gh, err := github.New(ctx, ghOpts...)
		if err != nil {
			return errors.Errorf("creating github resolver: %w", err)
		}
		o.Resolvers = remote.Resolvers{github.Scheme: gh}
	}

	zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Str("source", cfg.Source).Msg("configured")

	cmd.SetContext(ctx)
	return nil
}

// setupLogging configures zerolog based on flags. Structured logs go to
// stderr only with --debug, and to the log file when one is configured.
func setupLogging(debug bool, logFile string) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if debug {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if logFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	logger := zerolog.Nop()
	if len(writers) > 0 {
		logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &logger
	return logger
}
