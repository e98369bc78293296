package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stage-planner/pkg/database"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrations du schéma",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Applique toutes les migrations en attente",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()
			return database.RunMigrations(e.sqlDB, e.logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Annule les dernières migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps doit être supérieur à 0")
			}
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()
			return database.RollbackMigrations(e.sqlDB, steps, e.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "nombre de versions à annuler")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Affiche la version courante du schéma",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()

			version, dirty, err := database.MigrationVersion(e.sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})

	return cmd
}
