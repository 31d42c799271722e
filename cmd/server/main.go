package main

import (
	"os"

	"github.com/damacus/iron-gallery/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "iron-gallery",
	Short:   "Photo admin panel and share links over an S3 bucket",
	Long: `Iron Gallery serves an admin panel for a photo bucket on any
S3-compatible store, and public share links that expose one folder as a
gallery, optionally behind a password.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file path (default: ./config.yaml)")
	flags.String("bucket", "", "photo bucket (env: S3_BUCKET)")
	flags.String("endpoint", "", "S3 endpoint URL (default: https://s3.<region>.scw.cloud, env: S3_ENDPOINT)")
	flags.String("region", "", "S3 region (default: fr-par, env: S3_REGION)")
	flags.String("shares-backend", "", "share registry backend: file, object (default: file, env: SHARES_BACKEND)")
	flags.String("shares-file", "", "share registry file for the file backend (default: data/shares.json, env: SHARES_FILE)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env: LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
