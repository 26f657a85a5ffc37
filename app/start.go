package app

import (
	"github.com/spf13/cobra"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/daemon"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().StringVar(&configPath, "config", "./etc/", "Directory holding main.toml")
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	configPath string // Path to the configuration directory
	devMode    bool

	cfg config.Config

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the usuarios web service",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			if cfg, err = config.ReadConfig(configPath); err != nil {
				return err //nolint:wrapcheck
			}

			if devMode {
				cfg.DevMode = true
			}

			return logger.Init(cfg.Log) //nolint:wrapcheck
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := daemon.New(&cfg)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return d.Start() //nolint:wrapcheck
		},
	}
)
