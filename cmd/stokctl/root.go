package main

import (
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/config"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/database"
	"github.com/caglarerbay/inventory-mobile-stok-backend/internal/logger"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "stokctl",
	Short:         "Stok ve cihaz envanteri yönetim aracı",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.LoadWithoutAuth(); err != nil {
			return err
		}
		if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
			return err
		}
		// Init şemayı da günceller
		return database.Init(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Get().Sync()
	},
}
