package commands

import (
	"fmt"

	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/spf13/cobra"
)

// NewViewCommand creates the view command group.
func NewViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "view",
		Aliases: []string{"views"},
		Short:   "Query views",
		Long:    "Query the views of design documents",
	}

	cmd.AddCommand(newViewQueryCommand())

	return cmd
}

func newViewQueryCommand() *cobra.Command {
	var (
		key         string
		startKey    string
		endKey      string
		prefix      string
		limit       int
		skip        int
		descending  bool
		includeDocs bool
		reduce      bool
		group       bool
		groupLevel  int
		update      string
	)

	cmd := &cobra.Command{
		Use:   "query DATABASE DESIGN_DOC VIEW",
		Short: "Query a view",
		Long: `Query a view of a design document.

Keys are parsed as JSON, so --key 42 and --key '["a",1]' send a number and
an array. Anything that is not valid JSON is sent as a string. The view is
not reduced unless --reduce is given.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			params := &couch.QueryParams{}
			flags := cmd.Flags()

			if flags.Changed("key") {
				params.Key = parseKey(key)
			}

			if prefix != "" {
				params.StartKey = prefix
				params.EndKey = prefix + couch.EndOfUnicode
			}

			if flags.Changed("start-key") {
				params.StartKey = parseKey(startKey)
			}

			if flags.Changed("end-key") {
				params.EndKey = parseKey(endKey)
			}

			if flags.Changed("limit") {
				params.Limit = couch.Int(limit)
			}

			if flags.Changed("skip") {
				params.Skip = couch.Int(skip)
			}

			if descending {
				params.Descending = couch.Bool(true)
			}

			if includeDocs {
				params.IncludeDocs = couch.Bool(true)
			}

			if reduce {
				params.Reduce = couch.Bool(true)
			}

			if group {
				params.Group = couch.Bool(true)
			}

			if flags.Changed("group-level") {
				params.GroupLevel = couch.Int(groupLevel)
			}

			params.Update = update

			response, err := client.DB(args[0]).QueryView(cmd.Context(), args[1], args[2], params)
			if err != nil {
				return fmt.Errorf("failed to query view: %w", err)
			}

			return renderViewResponse(cmd, response)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "only rows with this key")
	cmd.Flags().StringVar(&startKey, "start-key", "", "first key")
	cmd.Flags().StringVar(&endKey, "end-key", "", "last key")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only string keys starting with this prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of rows to skip")
	cmd.Flags().BoolVar(&descending, "descending", false, "return rows in reverse order")
	cmd.Flags().BoolVar(&includeDocs, "include-docs", false, "include document bodies")
	cmd.Flags().BoolVar(&reduce, "reduce", false, "run the reduce function")
	cmd.Flags().BoolVar(&group, "group", false, "group reduced rows by key")
	cmd.Flags().IntVar(&groupLevel, "group-level", 0, "group reduced rows by a key prefix")
	cmd.Flags().StringVar(&update, "update", "", "index update mode (true, false, lazy)")

	return cmd
}
