package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand creates the couch command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "couch",
		Short: "CouchDB command-line client",
		Long: `A command-line interface for CouchDB.

It manages databases, documents, attachments, design documents and views
over the CouchDB HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.couch/config.yml)")
	flags.StringP("url", "u", "", "server URL")
	flags.String("username", "", "username for basic authentication")
	flags.String("password", "", "password for basic authentication (prompted when a username is set)")
	flags.String("output", constants.FormatTable, "output format (table, json, yaml)")
	flags.Duration("timeout", constants.DefaultHTTPTimeout, "request timeout")
	flags.Int("retries", 0, "transport retries for 5xx responses and connection errors")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("debug", false, "log every request and response")

	for _, name := range []string{"config", "url", "username", "password", "output", "timeout", "retries", "verbose", "debug"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewInfoCommand())
	rootCmd.AddCommand(NewDatabasesCommand())
	rootCmd.AddCommand(NewDocumentsCommand())
	rootCmd.AddCommand(NewAttachmentsCommand())
	rootCmd.AddCommand(NewDesignCommand())
	rootCmd.AddCommand(NewViewCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// initConfig reads the config file and COUCH_* environment variables.
func initConfig(cmd *cobra.Command) error {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, ".couch")
		if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error creating config directory: %v\n", err)
		}

		// Search config in ~/.couch/config.yml
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("COUCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
		}
	}

	return nil
}
