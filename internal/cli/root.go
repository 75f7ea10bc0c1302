package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// Execute запускает CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "configs/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "edubot",
		Short: "Телеграм-бот для проведения тестов с банками вопросов",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "путь к YAML-конфигурации")
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	return cmd
}
