package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/embutidos/internal/repository/mysql"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crea o actualiza las tablas",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			if err := mysql.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migración completada")
			return nil
		},
	}
}
