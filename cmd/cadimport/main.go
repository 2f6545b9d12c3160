// cadimport is the command-line entry point: an HTTP API server plus
// one-shot subcommands for running an import, listing the run history and
// applying schema migrations.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cadimport",
		Short:         "bulk identity-record import and retrieval service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newImportCmd(), newRunsCmd(), newMigrateCmd())
	return root
}

// newLogger builds the process logger from the configured level name.
func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return logrus.NewEntry(log)
}
