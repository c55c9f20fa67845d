package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/export"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/report"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// analysisJSON is the machine-readable output of analyze --json.
type analysisJSON struct {
	Summary     report.Summary                     `json:"summary"`
	Resampled   map[types.Granularity]types.Series `json:"resampled"`
	Correlation types.CorrelationMatrix            `json:"correlation"`
	Undefined   []string                           `json:"undefined,omitempty"`
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the pipeline and print the results",
		Long:  `Loads the source, cleans and resamples it, then prints the summary, period means, correlation matrix and PM2.5 categories.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.run(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				out := analysisJSON{
					Summary:     res.Summary,
					Resampled:   res.Resampled,
					Correlation: res.Correlation,
				}
				if res.CorrelationErr != nil {
					out.Undefined = strings.Split(res.CorrelationErr.Error(), "\n")
				}
				return export.WriteJSON(cmd.OutOrStdout(), out)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	return cmd
}

// run executes the pipeline against the configured source.
func (c *cli) run(cmd *cobra.Command) (*pipeline.Result, error) {
	opts, err := airquality.PipelineOptions(c.cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(cmd.Context(), c.logger, opts)
}
