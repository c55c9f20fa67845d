package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/db"
)

func newStationsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stations",
		Short: "List stored stations and recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := db.OpenAndMigrate(c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(conn); err != nil {
					c.logger.Error("db close", "error", err)
				}
			}()

			svc, err := airquality.NewService(c.cfg, conn, c.logger)
			if err != nil {
				return err
			}
			stations, err := svc.Stations(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stations))
			for _, st := range stations {
				rows = append(rows, []string{fmt.Sprint(st.ID), st.Name})
			}
			section(cmd.OutOrStdout(), "Stations", renderTable([]string{"id", "name"}, rows))

			runs, err := svc.Imports(cmd.Context(), 10)
			if err != nil {
				return err
			}
			rows = rows[:0]
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Format("2006-01-02 15:04"),
					fmt.Sprint(run.StationID),
					fmt.Sprint(run.Rows),
					run.Source,
				})
			}
			section(cmd.OutOrStdout(), "Recent imports", renderTable([]string{"started", "station", "rows", "source"}, rows))
			return nil
		},
	}
}
