package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"s3mirror/internal/flags"
	"s3mirror/internal/logger"
	"s3mirror/internal/mode"
	"s3mirror/internal/provider/factory"
)

type rootFlags struct {
	mode       string
	endpoint   string
	profile    string
	configFile string
	user       string
	debug      bool
}

func newRootCmd(app *appContainer) *cobra.Command {
	cmdFlags := rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "s3mirror",
		Short: "s3mirror is a command-line tool for S3 storage with a local mirror.",
		Long: `A CLI for S3 bucket and object operations that keeps a local mirror of
everything it stores. It runs against either a locally hosted emulator
(mock mode) or AWS proper (real mode), and can pick between them
automatically based on whether usable credentials are present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmdFlags.debug {
				app.Logger = logger.NewLogger(true)
			}
			if cmdFlags.configFile != "" {
				app.ConfigManager.SetConfigPath(cmdFlags.configFile)
			}

			cfg, err := app.ConfigManager.LoadConfig()
			if err != nil {
				return err
			}

			// Flags override config file and environment.
			if cmdFlags.mode != "" {
				if cmdFlags.mode != mode.Auto {
					if _, err := mode.Parse(cmdFlags.mode); err != nil {
						return err
					}
				}
				cfg.Mode = cmdFlags.mode
			}
			if cmdFlags.endpoint != "" {
				cfg.EndpointURL = cmdFlags.endpoint
			}
			if cmdFlags.profile != "" {
				cfg.Profile = cmdFlags.profile
			}

			app.Config = cfg
			app.Factory = factory.NewFactory(cfg, app.Logger)
			app.UserID = cfg.DefaultUserID
			if cmdFlags.user != "" {
				app.UserID = cmdFlags.user
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cmdFlags.mode, flags.Mode, flags.ModeShort, "", "Backend mode: mock, real, or auto (default from config)")
	pf.StringVar(&cmdFlags.endpoint, flags.Endpoint, "", "Override the S3 endpoint URL (mock mode)")
	pf.StringVar(&cmdFlags.profile, flags.Profile, "", "AWS shared-config profile (real mode)")
	pf.StringVar(&cmdFlags.configFile, flags.ConfigFile, "", "Path to an explicit config file")
	pf.StringVarP(&cmdFlags.user, flags.User, flags.UserShort, "", "User id attached to operations; enables permission checks")
	pf.BoolVarP(&cmdFlags.debug, flags.Debug, flags.DebugShort, false, "Enable debug logging")

	rootCmd.AddCommand(newBucketCmd(app))
	rootCmd.AddCommand(newObjectCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))

	return rootCmd
}

func Execute(app *appContainer) {
	if err := newRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
