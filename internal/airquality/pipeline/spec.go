package pipeline

import (
	"errors"
	"net/http"
	"strings"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/loader"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/report"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// DefaultSource is the published Tiantan hourly dataset.
const DefaultSource = "https://raw.githubusercontent.com/WigunaKurniawan/air-quality-tiantan-analysis/main/Dataset/PRSA_Data_Tiantan_20130301-20170228.csv"

// Spec is the textual form of Options, as read from a config file or flags.
type Spec struct {
	Source             string           `mapstructure:"source"`
	Granularities      []string         `mapstructure:"granularities"`
	CorrelationColumns []string         `mapstructure:"correlation_columns"`
	CorrelationBasis   string           `mapstructure:"correlation_basis"`
	Binning            classify.Binning `mapstructure:"binning"`
	Head               int              `mapstructure:"head"`
}

func DefaultSpec() Spec {
	cols := make([]string, len(DefaultCorrelationColumns))
	for i, c := range DefaultCorrelationColumns {
		cols[i] = c.String()
	}
	return Spec{
		Source:             DefaultSource,
		Granularities:      []string{string(types.Monthly), string(types.Annual)},
		CorrelationColumns: cols,
		Binning:            classify.DefaultBinning,
		Head:               report.DefaultHead,
	}
}

// Options resolves names into typed options. client is used for http(s) sources.
func (s Spec) Options(client *http.Client) (Options, error) {
	var errs []error
	opts := Options{
		Binning: s.Binning,
		Head:    s.Head,
	}
	if src := strings.TrimSpace(s.Source); src != "" {
		opts.Source = loader.Open(src, client)
	}
	for _, name := range s.Granularities {
		g, err := types.ParseGranularity(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		opts.Granularities = append(opts.Granularities, g)
	}
	cols, err := types.ParseColumns(s.CorrelationColumns)
	if err != nil {
		errs = append(errs, err)
	}
	opts.CorrelationColumns = cols
	if strings.TrimSpace(s.CorrelationBasis) != "" {
		g, err := types.ParseGranularity(s.CorrelationBasis)
		if err != nil {
			errs = append(errs, err)
		}
		opts.CorrelationBasis = g
	}
	if err := errors.Join(errs...); err != nil {
		return Options{}, err
	}
	return opts, opts.Validate()
}
