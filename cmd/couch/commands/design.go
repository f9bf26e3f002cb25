package commands

import (
	"fmt"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewDesignCommand creates the design command group.
func NewDesignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "design",
		Aliases: []string{"ddoc"},
		Short:   "Manage design documents",
		Long:    "Compile, push and display design documents holding views",
	}

	cmd.AddCommand(newDesignCompileCommand())
	cmd.AddCommand(newDesignPushCommand())
	cmd.AddCommand(newDesignGetCommand())

	return cmd
}

// viewFlags holds the --map and --reduce flags shared by compile and push.
type viewFlags struct {
	maps    []string
	reduces []string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.maps, "map", nil, "map function as name=source or name=@file (repeatable)")
	cmd.Flags().StringArrayVar(&f.reduces, "reduce", nil, "reduce function as name=source, name=@file or name=_count (repeatable)")
}

func (f *viewFlags) params() (*couch.CompileDesignDocParams, error) {
	if len(f.maps) == 0 {
		return nil, constants.ErrViewSourceRequired
	}

	maps, err := parseViewSpecs(f.maps)
	if err != nil {
		return nil, err
	}

	reduces, err := parseViewSpecs(f.reduces)
	if err != nil {
		return nil, err
	}

	return &couch.CompileDesignDocParams{MapViews: maps, ReduceViews: reduces}, nil
}

func newDesignCompileCommand() *cobra.Command {
	var views viewFlags

	cmd := &cobra.Command{
		Use:   "compile NAME",
		Short: "Compile a design document",
		Long:  "Print the design document built from the given views without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := views.params()
			if err != nil {
				return err
			}

			designDoc := couch.CompileDesignDoc(args[0], params)

			format, err := outputFormat()
			if err != nil {
				return err
			}

			if format == OutputFormatYAML {
				return StandardYAMLRenderer(cmd.OutOrStdout(), designDoc)
			}

			return StandardJSONRenderer(cmd.OutOrStdout(), designDoc)
		},
	}

	views.register(cmd)

	return cmd
}

func newDesignPushCommand() *cobra.Command {
	var views viewFlags

	cmd := &cobra.Command{
		Use:   "push DATABASE NAME",
		Short: "Save a design document",
		Long:  "Compile a design document from the given views and save it, replacing any existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := views.params()
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			result, err := client.DB(args[0]).SaveDesignDoc(cmd.Context(), args[1], params)
			if err != nil {
				return fmt.Errorf("failed to save design document: %w", err)
			}

			err = renderSaveResult(cmd.OutOrStdout(), "Saved", result)
			if err != nil {
				return err
			}

			if !result.OK {
				return fmt.Errorf("%w: %s", constants.ErrSaveNotConfirmed, result.ID)
			}

			return nil
		},
	}

	views.register(cmd)

	return cmd
}

func newDesignGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get DATABASE NAME",
		Short: "Display a design document",
		Long:  "Display the views of a design document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			designDoc, err := client.DB(args[0]).LoadDesignDoc(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("failed to load design document: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), designDoc, func(table *tablewriter.Table) {
				table.Header("View", "Map", "Reduce")

				for _, name := range sortedKeys(designDoc.Views) {
					view := designDoc.Views[name]
					_ = table.Append(name, view.Map, view.Reduce)
				}
			})
		},
	}
}
