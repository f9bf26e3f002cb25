package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	URL      string        `json:"url,omitempty"      yaml:"url,omitempty"`
	Username string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty"`
	Output   string        `json:"output,omitempty"   yaml:"output,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"  yaml:"timeout,omitempty"`
	Retries  int           `json:"retries,omitempty"  yaml:"retries,omitempty"`
	Verbose  bool          `json:"verbose,omitempty"  yaml:"verbose,omitempty"`
	Debug    bool          `json:"debug,omitempty"    yaml:"debug,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Display and edit the couch CLI configuration file",
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
		Long:  "Display the effective configuration from flags, COUCH_* variables and the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Password != "" {
				config.Password = constants.MaskedSecret
			}

			return renderOutput(cmd.OutOrStdout(), config, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Config File", configFilePath())
				_ = table.Append("URL", valueOrNA(config.URL))
				_ = table.Append("Username", valueOrNA(config.Username))
				_ = table.Append("Password", valueOrNA(config.Password))
				_ = table.Append("Output", valueOrNA(config.Output))
				_ = table.Append("Timeout", config.Timeout.String())
				_ = table.Append("Retries", strconv.Itoa(config.Retries))
				_ = table.Append("Verbose", strconv.FormatBool(config.Verbose))
				_ = table.Append("Debug", strconv.FormatBool(config.Debug))
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a value in the config file. Keys: url, username, password, output, timeout, retries, verbose, debug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := readConfigFile()
			if err != nil {
				return err
			}

			err = setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			value := args[1]
			if args[0] == "password" {
				value = constants.MaskedSecret
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s to %s\n", constants.CheckMarkSymbol, args[0], value)

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a configuration value",
		Long:  "Remove a value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := readConfigFile()
			if err != nil {
				return err
			}

			err = unsetConfigValue(config, args[0])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Unset %s\n", constants.CheckMarkSymbol, args[0])

			return nil
		},
	}
}

// loadConfig returns the effective settings.
func loadConfig() *Config {
	return &Config{
		URL:      viper.GetString("url"),
		Username: viper.GetString("username"),
		Password: viper.GetString("password"),
		Output:   viper.GetString("output"),
		Timeout:  viper.GetDuration("timeout"),
		Retries:  viper.GetInt("retries"),
		Verbose:  viper.GetBool("verbose"),
		Debug:    viper.GetBool("debug"),
	}
}

// configFilePath returns the --config file, the file viper loaded, or
// $HOME/.couch/config.yml.
func configFilePath() string {
	if path := viper.GetString("config"); path != "" {
		return path
	}

	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".couch", "config.yml")
	}

	return filepath.Join(home, ".couch", "config.yml")
}

// readConfigFile loads the config file alone. A missing file is empty.
func readConfigFile() (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(configFilePath())
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func saveConfigStruct(config *Config) error {
	configFile := configFilePath()

	err := os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "url":
		config.URL = value
	case "username":
		config.Username = value
	case "password":
		config.Password = value
	case "output":
		switch value {
		case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
			config.Output = value
		default:
			return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, value)
		}
	case "timeout":
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", value, err)
		}

		config.Timeout = timeout
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries %q: %w", value, err)
		}

		config.Retries = retries
	case "verbose", "debug":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}

		if key == "verbose" {
			config.Verbose = enabled
		} else {
			config.Debug = enabled
		}
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch key {
	case "url":
		config.URL = ""
	case "username":
		config.Username = ""
	case "password":
		config.Password = ""
	case "output":
		config.Output = ""
	case "timeout":
		config.Timeout = 0
	case "retries":
		config.Retries = 0
	case "verbose":
		config.Verbose = false
	case "debug":
		config.Debug = false
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
