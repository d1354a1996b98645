package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// ConfigDirName is the directory under $HOME holding CLI state.
const ConfigDirName = ".skella"

// Config represents the CLI configuration file.
type Config struct {
	API               string `json:"api,omitempty"         yaml:"api,omitempty"`
	SchemaURL         string `json:"schema_url,omitempty"  yaml:"schema_url,omitempty"`
	APIVersion        string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	Token             string `json:"token,omitempty"       yaml:"token,omitempty"`
	Email             string `json:"email,omitempty"       yaml:"email,omitempty"`
	Output            string `json:"output,omitempty"      yaml:"output,omitempty"`
	Cache             string `json:"cache,omitempty"       yaml:"cache,omitempty"`
	CacheDir          string `json:"cache_dir,omitempty"   yaml:"cache_dir,omitempty"`
	NATSURL           string `json:"nats_url,omitempty"    yaml:"nats_url,omitempty"`
	NATSBucket        string `json:"nats_bucket,omitempty" yaml:"nats_bucket,omitempty"`
	RetryMax          int    `json:"retry_max,omitempty"   yaml:"retry_max,omitempty"`
	SkipSSLValidation bool   `json:"skip_ssl_validation"   yaml:"skip_ssl_validation"`
}

// configKeys maps settable keys to their setters.
var configKeys = map[string]func(*Config, string) error{
	"api":         func(c *Config, v string) error { c.API = v; return nil },
	"schema_url":  func(c *Config, v string) error { c.SchemaURL = v; return nil },
	"api_version": func(c *Config, v string) error { c.APIVersion = v; return nil },
	"output":      func(c *Config, v string) error { c.Output = v; return nil },
	"cache":       func(c *Config, v string) error { c.Cache = v; return nil },
	"cache_dir":   func(c *Config, v string) error { c.CacheDir = v; return nil },
	"nats_url":    func(c *Config, v string) error { c.NATSURL = v; return nil },
	"nats_bucket": func(c *Config, v string) error { c.NATSBucket = v; return nil },
	"retry_max": func(c *Config, v string) error {
		if v == "" {
			c.RetryMax = 0

			return nil
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid retry_max %q: %w", v, err)
		}

		c.RetryMax = n

		return nil
	},
	"skip_ssl_validation": func(c *Config, v string) error {
		c.SkipSSLValidation = v == "true"

		return nil
	},
}

// loadConfig reads the effective configuration from viper.
func loadConfig() *Config {
	return &Config{
		API:               viper.GetString("api"),
		SchemaURL:         viper.GetString("schema_url"),
		APIVersion:        viper.GetString("api_version"),
		Token:             viper.GetString("token"),
		Email:             viper.GetString("email"),
		Output:            viper.GetString("output"),
		Cache:             viper.GetString("cache"),
		CacheDir:          viper.GetString("cache_dir"),
		NATSURL:           viper.GetString("nats_url"),
		NATSBucket:        viper.GetString("nats_bucket"),
		RetryMax:          viper.GetInt("retry_max"),
		SkipSSLValidation: viper.GetBool("skip_ssl_validation"),
	}
}

// configDir returns $HOME/.skella, creating it when missing.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ConfigDirName)

	err = os.MkdirAll(dir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return dir, nil
}

// saveConfig writes config to the file viper read, or to $HOME/.skella/config.yml.
func saveConfig(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}

		configFile = filepath.Join(dir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	viper.SetConfigFile(configFile)

	return viper.ReadInConfig()
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the skella configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration after flags and environment are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			shown := *config
			if shown.Token != "" {
				shown.Token = constants.Masked
			}

			return render(cmd.OutOrStdout(), shown, func(table *tablewriter.Table) error {
				table.Header("Setting", "Value")

				rows := [][]string{
					{"api", shown.API},
					{"schema_url", shown.SchemaURL},
					{"api_version", shown.APIVersion},
					{"token", shown.Token},
					{"email", shown.Email},
					{"output", shown.Output},
					{"cache", shown.Cache},
					{"cache_dir", shown.CacheDir},
					{"nats_url", shown.NATSURL},
					{"nats_bucket", shown.NATSBucket},
					{"retry_max", strconv.Itoa(shown.RetryMax)},
					{"skip_ssl_validation", strconv.FormatBool(shown.SkipSSLValidation)},
				}

				for _, row := range rows {
					if row[1] == "" {
						row[1] = constants.NotAvailable
					}

					err := table.Append(row[0], row[1])
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + settableKeys(),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(args[0], args[1])
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Reset a configuration value to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfig(args[0], "")
		},
	}
}

func updateConfig(key, value string) error {
	setter, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	config := loadConfig()

	err := setter(config, value)
	if err != nil {
		return err
	}

	return saveConfig(config)
}

func settableKeys() string {
	keys := make([]string, 0, len(configKeys))
	for key := range configKeys {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return strings.Join(keys, ", ")
}
