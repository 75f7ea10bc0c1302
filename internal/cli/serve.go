package cli

import (
	"edutest-bot/internal/app"
	"edutest-bot/internal/infra/config"

	"github.com/spf13/cobra"
)

// newServeCmd запускает бота и административный HTTP-интерфейс.
func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить бота",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.URL != "" {
				if err := runMigrations(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			return app.Run(cmd.Context(), cfg)
		},
	}
}
