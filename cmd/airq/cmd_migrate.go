package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/db"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/db/migrate"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := db.Open(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(conn); err != nil {
					c.logger.Error("db close", "error", err)
				}
			}()

			if !statusOnly {
				if err := migrate.Run(conn, c.logger); err != nil {
					return err
				}
			}
			migrations, err := migrate.Status(conn)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(migrations))
			for _, m := range migrations {
				state := "pending"
				if m.Applied {
					state = "applied"
				}
				rows = append(rows, []string{m.Version, m.Name, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"version", "name", "state"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "only report migration state")
	return cmd
}
