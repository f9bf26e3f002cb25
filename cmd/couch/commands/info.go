package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display server information",
		Long:  "Display the welcome document of the CouchDB server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			info, err := client.Info(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get server info: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), info, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("URL", client.URL())
				_ = table.Append("Welcome", info.CouchDB)
				_ = table.Append("Version", info.Version)
				_ = table.Append("Git SHA", info.GitSHA)
				_ = table.Append("UUID", info.UUID)
				_ = table.Append("Vendor", info.Vendor.Name)

				if len(info.Features) > 0 {
					_ = table.Append("Features", strings.Join(info.Features, "\n"))
				}
			})
		},
	}
}
