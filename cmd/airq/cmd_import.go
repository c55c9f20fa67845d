package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/db"
)

func newImportCmd(c *cli) *cobra.Command {
	var station string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store the raw readings of a CSV source",
		Long: `Loads the source and stores its readings without cleaning. The station
defaults to the "station" column of the first row.`,
		Args: cobra.NoArgs,
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
			run, err := svc.Import(cmd.Context(), svc.Options().Source, station)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"import", "station", "rows", "source"},
				[][]string{{run.ID, fmt.Sprint(run.StationID), fmt.Sprint(run.Rows), run.Source}},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&station, "station", "", "station name (default: from the data)")
	return cmd
}
