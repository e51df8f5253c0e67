// Package cmd implements the obo-gateway CLI commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatgate/obo-identity/internal/config"
)

// Version is set at build time
var Version = "0.1.0"

type rootOptions struct {
	configPath   string
	outputFormat string
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "obo-gateway",
		Short: "Chat gateway that calls agents on behalf of the signed-in user",
		Long: `obo-gateway signs users in through a trusted proxy's identity headers or
a username and password, keeps their session, and forwards their delegated
bearer token to downstream agents.`,
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", "text", "Output format: text, json")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newTokenCmd(opts))
	return rootCmd
}

func newLogger(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
