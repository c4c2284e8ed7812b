// Package cli implements the portal-rpa command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/sysutil"
)

// RootOptions holds global flags and the configuration loaded before any
// subcommand runs.
type RootOptions struct {
	EnvFile string
	Version string

	Config config.Config
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:           "portal-rpa",
		Short:         "Portal enquiry automation service",
		Long:          "Issues message identifiers and drives portal enquiries, publishing the result page and report.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file",
		sysutil.FirstNonEmpty(os.Getenv("ENV_FILE"), ".env"), "dotenv file seeding the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAllocateCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))

	return cmd
}

// load seeds the environment, reads the configuration and installs the
// process logger.
func (o *RootOptions) load() error {
	if err := config.LoadEnvFile(o.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o.Config = cfg

	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stderr, cfg.LogPretty, cfg.OTEL.ServiceName)
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}
