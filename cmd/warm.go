package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Re-fetch and re-index every cached tile",
	Long:  "Lists all cached quadkeys and refreshes each from the upstream tile provider, re-seeding the places index after a rebuild.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("warm"); err != nil {
			return err
		}

		env, err := initEnv()
		if err != nil {
			return err
		}

		result, err := env.Service.Warm(cmd.Context())
		if err != nil {
			return err
		}

		zap.L().Info("warm-up complete",
			zap.Int("attempted", result.Attempted),
			zap.Int("succeeded", result.Succeeded))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(warmCmd)
}
