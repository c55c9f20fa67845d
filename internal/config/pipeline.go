package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
)

// LoadPipeline reads the analysis settings. Precedence, lowest first: defaults,
// the YAML file at path (skipped when path is empty), PIPELINE_* variables
// such as PIPELINE_SOURCE or PIPELINE_BINNING_VERY_HIGH.
func LoadPipeline(path string) (pipeline.Spec, error) {
	def := pipeline.DefaultSpec()

	v := viper.New()
	v.SetDefault("source", def.Source)
	v.SetDefault("granularities", def.Granularities)
	v.SetDefault("correlation_columns", def.CorrelationColumns)
	v.SetDefault("correlation_basis", def.CorrelationBasis)
	v.SetDefault("binning.moderate", def.Binning.Moderate)
	v.SetDefault("binning.high", def.Binning.High)
	v.SetDefault("binning.very_high", def.Binning.VeryHigh)
	v.SetDefault("head", def.Head)

	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return pipeline.Spec{}, fmt.Errorf("read pipeline config %s: %w", path, err)
		}
		slog.Debug("pipeline config loaded", "path", v.ConfigFileUsed())
	}

	var spec pipeline.Spec
	if err := v.Unmarshal(&spec); err != nil {
		return pipeline.Spec{}, fmt.Errorf("decode pipeline config: %w", err)
	}
	if err := spec.Binning.Validate(); err != nil {
		return pipeline.Spec{}, fmt.Errorf("pipeline config: %w", err)
	}
	return spec, nil
}
