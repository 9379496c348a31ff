package main

import (
	"fmt"
	"log"
	"os"

	amanifest "gencorr/adapters/manifest"
	"gencorr/adapters/postgres"
	"gencorr/adapters/render"
	"gencorr/app"
	dm "gencorr/domain/manifest"
	"gencorr/internal/config"
	"gencorr/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; environment variables win either way
	if err := godotenv.Load(); err == nil {
		log.Println("[Main] loaded configuration from .env")
	}

	rootCmd := &cobra.Command{
		Use:   "gencorr",
		Short: "Assemble, annotate and render genetic correlation results",
	}
	rootCmd.AddCommand(newRunCmd(), newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var skipMetrics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the result pipeline over completed estimator logs",
		Long: `Parses every completed-run log, assembles the unified correlation table,
applies Holm correction per metric family, and renders the annotated
heatmaps plus exportable tables into the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.Pipeline.Traits) == 0 {
				return fmt.Errorf("GENCORR_TRAITS must list at least one trait display name")
			}

			matrices := []app.MatrixConfig{
				{
					Name:        "trait_metric",
					LogDir:      cfg.Paths.TraitLogDir,
					ColumnOrder: cfg.Pipeline.Metrics,
				},
			}
			if !skipMetrics {
				matrices = append(matrices, app.MatrixConfig{
					Name:        "metric_metric",
					LogDir:      cfg.Paths.MetricLogDir,
					Square:      true,
					ColumnOrder: cfg.Pipeline.Metrics,
				})
			}

			var store app.ResultStore
			if cfg.Database.URL != "" {
				db, err := sqlx.Connect("postgres", cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("connecting to database: %w", err)
				}
				defer db.Close()
				repo := postgres.NewResultRepository(db)
				if err := repo.EnsureSchema(cmd.Context()); err != nil {
					return err
				}
				store = repo
			}

			pipeline := app.NewPipeline(
				amanifest.NewReader(cfg.Paths.ManifestFile),
				dm.NewResolver(),
				render.NewHeatmapRenderer(),
				render.NewExporter(),
				store,
				app.PipelineConfig{
					Traits:    cfg.Pipeline.Traits,
					OutputDir: cfg.Paths.OutputDir,
					Assemble: app.AssembleConfig{
						MetricPrefix: cfg.Pipeline.MetricPrefix,
						MetricSuffix: cfg.Pipeline.MetricSuffix,
					},
					Matrices: matrices,
				},
			)

			artifacts, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("[Main] run %s complete, artifacts in %s", artifacts.RunID, cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipMetrics, "skip-metric-matrix", false,
		"only build the trait-vs-metric configuration")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve run artifacts for interactive inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return ui.NewServer(cfg.Paths.OutputDir).Run(cfg.Server.Port)
		},
	}
}
