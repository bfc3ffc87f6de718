package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fixit/internal/config"
	"fixit/pkg/logger"
)

var (
	cfg config.Config
	log zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "fixitctl",
	Short:         "Operator tooling for the fixit maintenance API",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		log = logger.New(cfg.Env)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(vendorsCmd)
	rootCmd.AddCommand(eventsCmd)
}
