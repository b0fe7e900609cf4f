package main

import (
	"blog/db"
	"blog/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables and indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		orm, err := openStore(conf)
		if err != nil {
			return err
		}
		logger.L.Info("Migrations applied")
		return db.Close(orm)
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
