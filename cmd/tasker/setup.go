package main

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/service/installer"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

var setupCmd = &cobra.Command{
	Use:           "setup",
	Short:         "Interactively write the runtime .env",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting setup")

		// run wizard (includes save step)
		if _, err := installer.RunWizard(); err != nil {
			return err
		}

		runtimePath := config.GetRuntimePath()
		envPath := filepath.Join(runtimePath, ".env")
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
			return err
		}

		logger.Info().Str("path", envPath).Msg("configuration written")
		logger.Info().Msg("Setup complete! You can now run 'tasker start'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
