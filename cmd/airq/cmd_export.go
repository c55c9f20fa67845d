package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/export"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the analysis to JSON or CSV files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			res, err := c.run(cmd)
			if err != nil {
				return err
			}
			paths, err := export.Export(outDir, f, res)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			c.logger.Info("export complete", "dir", outDir, "format", f, "files", len(paths))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.CSV), "output format: json or csv")
	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "output directory")
	return cmd
}
