package main

import (
	"os"

	"mentorlink/api/internal/config"
	"mentorlink/api/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg config.Config
	lgr zerolog.Logger

	rootCmd = &cobra.Command{
		Use:           "mentorlink",
		Short:         "Mentorship, messaging and forum API for the campus network",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if backend, _ := cmd.Flags().GetString("store"); backend != "" {
				loaded.StoreBackend = backend
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			lgr = logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("store", "", "store backend override: memory, badger, redis or postgres")
	rootCmd.AddCommand(serveCmd, seedCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("mentorlink failed")
		os.Exit(1)
	}
}
