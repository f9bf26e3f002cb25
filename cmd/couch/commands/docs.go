package commands

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewDocumentsCommand creates the docs command group.
func NewDocumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"doc", "documents"},
		Short:   "Manage documents",
		Long:    "Read, write, list and delete the documents of a database",
	}

	cmd.AddCommand(newDocumentsGetCommand())
	cmd.AddCommand(newDocumentsPutCommand())
	cmd.AddCommand(newDocumentsDeleteCommand())
	cmd.AddCommand(newDocumentsAllCommand())
	cmd.AddCommand(newDocumentsBulkDeleteCommand())

	return cmd
}

func newDocumentsGetCommand() *cobra.Command {
	var (
		rev       string
		conflicts bool
	)

	cmd := &cobra.Command{
		Use:   "get DATABASE DOC_ID",
		Short: "Get a document",
		Long:  "Display a document. The output is JSON unless --output yaml is given",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			params := &couch.LoadDocParams{Rev: rev}
			if conflicts {
				params.Conflicts = couch.Bool(true)
			}

			doc, err := client.DB(args[0]).LoadDoc(cmd.Context(), args[1], params)
			if err != nil {
				return fmt.Errorf("failed to load document: %w", err)
			}

			if doc == nil {
				return fmt.Errorf("%w: %s", constants.ErrDocumentNotFound, args[1])
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			if format == OutputFormatYAML {
				return StandardYAMLRenderer(cmd.OutOrStdout(), doc)
			}

			return StandardJSONRenderer(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "revision to read")
	cmd.Flags().BoolVar(&conflicts, "conflicts", false, "include conflicting revisions")

	return cmd
}

func newDocumentsPutCommand() *cobra.Command {
	var noConflictResolution bool

	cmd := &cobra.Command{
		Use:   "put DATABASE JSON|@FILE|-",
		Short: "Save a document",
		Long: `Save a document given inline, read from a file (@path) or from stdin (-).

A document without _id gets a generated one. A stale or missing _rev is
resolved by re-reading the current revision once, unless
--no-conflict-resolution is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[1])
			if err != nil {
				return err
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			var opts []couch.SaveOption
			if noConflictResolution {
				opts = append(opts, couch.WithoutConflictResolution())
			}

			result, err := client.DB(args[0]).SaveDoc(cmd.Context(), doc, opts...)
			if err != nil {
				return fmt.Errorf("failed to save document: %w", err)
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

	cmd.Flags().BoolVar(&noConflictResolution, "no-conflict-resolution", false, "fail on a revision conflict")

	return cmd
}

func newDocumentsDeleteCommand() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "delete DATABASE DOC_ID",
		Short: "Delete a document",
		Long:  "Delete the given revision of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rev == "" {
				return constants.ErrRevisionRequired
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			result, err := client.DB(args[0]).DeleteDoc(cmd.Context(), args[1], rev)
			if err != nil {
				return fmt.Errorf("failed to delete document: %w", err)
			}

			return renderSaveResult(cmd.OutOrStdout(), "Deleted", result)
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "revision to delete (required)")

	return cmd
}

func newDocumentsAllCommand() *cobra.Command {
	var (
		limit       int
		skip        int
		descending  bool
		includeDocs bool
		startKey    string
		endKey      string
		prefix      string
	)

	cmd := &cobra.Command{
		Use:   "all DATABASE",
		Short: "List documents",
		Long:  "List the documents of a database in id order",
		Args:  cobra.ExactArgs(1),
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

			if includeDocs {
				params.IncludeDocs = couch.Bool(true)
			}

			if prefix != "" {
				startKey = prefix
				endKey = prefix + couch.EndOfUnicode
			}

			if startKey != "" {
				params.StartKey = startKey
			}

			if endKey != "" {
				params.EndKey = endKey
			}

			docs, err := client.DB(args[0]).AllDocs(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			return renderViewResponse(cmd, docs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of documents")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of documents to skip")
	cmd.Flags().BoolVar(&descending, "descending", false, "list in reverse order")
	cmd.Flags().BoolVar(&includeDocs, "include-docs", false, "include document bodies")
	cmd.Flags().StringVar(&startKey, "start-key", "", "first document id")
	cmd.Flags().StringVar(&endKey, "end-key", "", "last document id")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only ids starting with this prefix")

	return cmd
}

func newDocumentsBulkDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-delete DATABASE DOC_ID:REV...",
		Short: "Delete many documents",
		Long:  "Delete many documents in one request. Each document is given as id:rev",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]couch.IDRev, 0, len(args)-1)

			for _, arg := range args[1:] {
				id, rev, ok := strings.Cut(arg, ":")
				if !ok || id == "" || rev == "" {
					return fmt.Errorf("%w: %q", constants.ErrRevisionRequired, arg)
				}

				docs = append(docs, couch.IDRev{ID: id, Rev: rev})
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			results, err := client.DB(args[0]).BulkDeleteDocs(cmd.Context(), docs)
			if err != nil {
				return fmt.Errorf("failed to delete documents: %w", err)
			}

			failed := 0

			err = renderOutput(cmd.OutOrStdout(), results, func(table *tablewriter.Table) {
				table.Header("ID", "Revision", "Status")

				for _, result := range results {
					status := constants.CheckMarkSymbol
					if result.Error != "" {
						status = constants.CrossMarkSymbol + " " + result.Error + ": " + result.Reason
					}

					_ = table.Append(result.ID, result.Rev, status)
				}
			})
			if err != nil {
				return err
			}

			for _, result := range results {
				if result.Error != "" {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", constants.ErrBulkDeleteFailure, failed, len(results))
			}

			return nil
		},
	}
}

// renderViewResponse prints the rows of a view or _all_docs response.
func renderViewResponse(cmd *cobra.Command, response *couch.ViewResponse) error {
	return renderOutput(cmd.OutOrStdout(), response, func(table *tablewriter.Table) {
		table.Header("ID", "Key", "Value")

		for _, row := range response.Rows {
			_ = table.Append(row.ID, formatValue(row.Key), formatValue(row.Value))
		}
	})
}
