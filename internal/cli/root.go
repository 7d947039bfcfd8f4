// Package cli implements the operator command line for the ingestion
// service: inspect service status, list a case's documents, read the dead
// letter queue and seed development data.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseflow-systems/docingest/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docingest-cli",
	Short: "Document ingestion service CLI",
	Long: `docingest-cli is the operator command line for the document
ingestion service.

Inspect a running instance, list registered documents, read the dead
letter queue and seed development data.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to service config file")
	rootCmd.PersistentFlags().String("server-url", "http://localhost:8003", "base URL of a running service instance")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = nil
	}
}

func requireConfig() (*config.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("service config required, pass --config")
	}
	return cfg, nil
}
