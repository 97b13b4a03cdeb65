package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/meet/internal/config"
)

var (
	// configFile is the yaml config path; empty means config/config.<CONFIG_ENV>.yaml
	configFile string
	cfg        *config.Config
)

var rootCommand = &cobra.Command{
	Use:           "meeting",
	Short:         "Headless meeting client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
			zerolog.SetGlobalLevel(lvl)
		}
		return nil
	},
}

func init() {
	rootCommand.AddCommand(joinCommand())
	rootCommand.AddCommand(linkCommand())
	rootCommand.AddCommand(devicesCommand())

	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
}

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := rootCommand.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
