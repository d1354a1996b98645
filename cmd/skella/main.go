package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/skella/cmd/skella/commands"
	"github.com/fivetwenty-io/skella/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "skella",
	Short: "Schema-driven API client",
	Long: `A command-line client for APIs that publish a skella schema document.

The schema is fetched on every run and resources are addressed by name,
so new endpoints are usable without a new release of the CLI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.skella/config.yml)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "API root URL without the version")
	rootCmd.PersistentFlags().String("schema-url", "", "schema document URL (overrides --api)")
	rootCmd.PersistentFlags().String("api-version", "", "API version requested for the schema")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().String("cache", "", "user cache backend (file, memory, nats, none, chain)")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server for the nats cache")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus request metrics to this file")
	rootCmd.PersistentFlags().Int("retry-max", 0, "retries for 5xx, 429 and connection errors")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("skip-ssl-validation", false, "skip SSL certificate validation")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"config":              "config",
		"api":                 "api",
		"schema_url":          "schema-url",
		"api_version":         "api-version",
		"output":              "output",
		"cache":               "cache",
		"nats_url":            "nats-url",
		"metrics_file":        "metrics-file",
		"retry_max":           "retry-max",
		"verbose":             "verbose",
		"no_color":            "no-color",
		"skip_ssl_validation": "skip-ssl-validation",
	} {
		err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
		if err != nil {
			panic(err)
		}
	}

	viper.Set("cli_version", version)

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewWhoamiCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewSaveCommand())
	rootCmd.AddCommand(commands.NewDeleteCommand())
	rootCmd.AddCommand(commands.NewUploadCommand())
	rootCmd.AddCommand(commands.NewRawCommand())
	rootCmd.AddCommand(commands.NewBatchCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.skella/config.yml
		viper.AddConfigPath(filepath.Join(home, commands.ConfigDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("SKELLA")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
