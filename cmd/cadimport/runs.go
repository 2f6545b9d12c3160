package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cadimport/internal/config"
	"cadimport/internal/storage/postgres"
)

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "list the import run history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			ctx := cmd.Context()
			store, closeStore, err := postgres.New(ctx, cfg.DatabaseDSN, log)
			if err != nil {
				return err
			}
			defer closeStore()

			runs, err := store.History(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tID\tARQUIVO\tENTIDADE\tCRIADOS\tENRIQUECIDOS\tREJEITADOS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.ID, r.Arquivo, r.Entidade,
					r.Criados, r.Enriquecidos, r.Rejeitados)
			}
			return tw.Flush()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply pending schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return postgres.Migrate(cfg.DatabaseDSN)
		},
	}
}
