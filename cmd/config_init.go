package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteStarter("config.yaml"); err != nil {
			return err
		}
		zap.L().Info("wrote starter config", zap.String("path", "config.yaml"))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
