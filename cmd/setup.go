package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the places and tile cache indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("setup"); err != nil {
			return err
		}

		env, err := initEnv()
		if err != nil {
			return err
		}

		if err := env.Store.EnsureIndices(cmd.Context()); err != nil {
			return err
		}

		zap.L().Info("indices ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
