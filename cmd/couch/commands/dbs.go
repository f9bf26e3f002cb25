package commands

import (
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewDatabasesCommand creates the dbs command group.
func NewDatabasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dbs",
		Aliases: []string{"db", "databases"},
		Short:   "Manage databases",
		Long:    "List, create, delete, check and compact databases",
	}

	cmd.AddCommand(newDatabasesListCommand())
	cmd.AddCommand(newDatabasesCreateCommand())
	cmd.AddCommand(newDatabasesDeleteCommand())
	cmd.AddCommand(newDatabasesExistsCommand())
	cmd.AddCommand(newDatabasesCompactCommand())

	return cmd
}

func newDatabasesListCommand() *cobra.Command {
	var (
		limit      int
		skip       int
		descending bool
		startKey   string
		endKey     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List databases",
		Long:  "List the databases of the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			params := &couch.ListParams{}
			if cmd.Flags().Changed("limit") {
				params.Limit = couch.Int(limit)
			}

			if cmd.Flags().Changed("skip") {
				params.Skip = couch.Int(skip)
			}

			if descending {
				params.Descending = couch.Bool(true)
			}

			if startKey != "" {
				params.StartKey = startKey
			}

			if endKey != "" {
				params.EndKey = endKey
			}

			names, err := client.ListAllDBs(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to list databases: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), names, func(table *tablewriter.Table) {
				table.Header("#", "Name")

				for i, name := range names {
					_ = table.Append(strconv.Itoa(i+1), name)
				}
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of databases")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of databases to skip")
	cmd.Flags().BoolVar(&descending, "descending", false, "list in reverse order")
	cmd.Flags().StringVar(&startKey, "start-key", "", "first database name")
	cmd.Flags().StringVar(&endKey, "end-key", "", "last database name")

	return cmd
}

func newDatabasesCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a database",
		Long:  "Create a database. An existing database is left untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			db, err := client.CreateDB(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Database %s is ready\n", constants.CheckMarkSymbol, db.Name())

			return nil
		},
	}
}

func newDatabasesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a database",
		Long:  "Delete a database and all of its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			deleted, err := client.DeleteDB(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete database: %w", err)
			}

			if !deleted {
				return fmt.Errorf("%w: %s", constants.ErrDatabaseNotFound, args[0])
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Database %s deleted\n", constants.CheckMarkSymbol, args[0])

			return nil
		},
	}
}

func newDatabasesExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists NAME",
		Short: "Check whether a database exists",
		Long:  "Check whether a database exists. The command fails when it does not",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			exists, err := client.HasDB(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to check database: %w", err)
			}

			if !exists {
				return fmt.Errorf("%w: %s", constants.ErrDatabaseNotFound, args[0])
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Database %s exists\n", constants.CheckMarkSymbol, args[0])

			return nil
		},
	}
}

func newDatabasesCompactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compact NAME",
		Short: "Compact a database",
		Long:  "Start the compaction of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			err = client.DB(args[0]).Compact(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to compact database: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Compaction of %s started\n", constants.CheckMarkSymbol, args[0])

			return nil
		},
	}
}
