package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cadimport/internal/blob"
	"cadimport/internal/config"
	"cadimport/internal/importer"
	"cadimport/internal/mapping"
	"cadimport/internal/metrics"
	"cadimport/internal/metrics/prompush"
	"cadimport/internal/schema"
	"cadimport/internal/storage/postgres"
)

func newImportCmd() *cobra.Command {
	var (
		target      string
		mappingPath string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "run one import from the command line",
		Long: "Runs the whole import wizard against FILE: store, map, validate and\n" +
			"reconcile. The mapping file is a JSON object of source column label to\n" +
			"canonical field name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			if cfg.PushgatewayURL != "" {
				backend, err := prompush.New(cfg.PushgatewayURL, cfg.MetricsJob)
				if err != nil {
					return err
				}
				metrics.SetBackend(backend)
			}

			m, err := loadMapping(mappingPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := postgres.New(ctx, cfg.DatabaseDSN, log)
			if err != nil {
				return err
			}
			defer closeStore()

			blobs, err := blob.NewStore(cfg.BlobDir)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			eng := importer.NewEngine(store, blobs, log, cfg.ValidateWorkers)
			out, err := eng.Run(ctx, filepath.Base(args[0]), target, f, m)
			if err != nil {
				return err
			}

			fmt.Printf("run %s: criados=%d enriquecidos=%d rejeitados=%d\n",
				out.RunID, out.Criados, out.Enriquecidos, out.Rejeitados)
			if out.ReportKey != nil {
				fmt.Printf("error report: %s\n", filepath.Join(cfg.BlobDir, *out.ReportKey))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "pessoas",
		fmt.Sprintf("import target, one of %v", schema.TargetNames()))
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "path to the column mapping JSON file")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}

func loadMapping(path string) (mapping.Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var m mapping.Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return m, nil
}
