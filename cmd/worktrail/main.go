// Command worktrail runs the construction lifecycle and audit service.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:           "worktrail",
		Short:         "Lifecycle, audit and activity service for construction projects",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newPrincipalCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("worktrail.exit")
		os.Exit(1)
	}
}

// newLogger builds the process logger from cfg.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if cfg.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	log.SetLevel(level)

	return log
}
