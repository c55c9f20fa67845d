package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/logging"
)

const appName = "airq"

// Default version is "dev" if not set with -ldflags "-X main.version=...".
var version = "dev"

// cli holds the persistent flags and what the root command derives from them.
type cli struct {
	configPath string
	source     string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   appName,
		Short: "Tiantan air quality analysis",
		Long: `airq loads the Tiantan hourly air quality dataset, forward fills gaps,
resamples it to monthly and annual means, correlates pollutants with weather
and bins PM2.5 into categories.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "pipeline YAML file (overrides PIPELINE_CONFIG)")
	root.PersistentFlags().StringVar(&c.source, "source", "", "CSV path or http(s) URL (overrides DATA_SOURCE)")

	root.AddCommand(
		newAnalyzeCmd(c),
		newImportCmd(c),
		newExportCmd(c),
		newMigrateCmd(c),
		newStationsCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.configPath != "" {
		cfg.PipelineConfig = c.configPath
	}
	if c.source != "" {
		cfg.DataSource = c.source
	}
	c.cfg = cfg
	c.logger = logging.New(cfg, version, appName, cmd.ErrOrStderr())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
