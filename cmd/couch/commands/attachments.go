package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/spf13/cobra"
)

// NewAttachmentsCommand creates the attachments command group.
func NewAttachmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attachments",
		Aliases: []string{"attachment", "att"},
		Short:   "Manage document attachments",
		Long:    "Upload, download and delete the attachments of a document",
	}

	cmd.AddCommand(newAttachmentsPutCommand())
	cmd.AddCommand(newAttachmentsGetCommand())
	cmd.AddCommand(newAttachmentsDeleteCommand())

	return cmd
}

func newAttachmentsPutCommand() *cobra.Command {
	var (
		rev         string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "put DATABASE DOC_ID NAME FILE",
		Short: "Upload an attachment",
		Long: `Upload a file as an attachment of a document. FILE may be "-" for stdin.

The content type is taken from --content-type, then from the file
extension, and defaults to application/octet-stream.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			db := client.DB(args[0])
			params := &couch.AddAttachmentParams{ContentType: contentType}

			var result *couch.SaveResult
			if args[3] == "-" {
				result, err = db.AddAttachmentFromStream(cmd.Context(), args[1], rev, args[2], cmd.InOrStdin(), params)
			} else {
				result, err = db.AddAttachmentFromFile(cmd.Context(), args[1], rev, args[2], args[3], params)
			}

			if err != nil {
				return fmt.Errorf("failed to upload attachment: %w", err)
			}

			return renderSaveResult(cmd.OutOrStdout(), "Uploaded", result)
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "current revision of the document")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type of the attachment")

	return cmd
}

func newAttachmentsGetCommand() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "get DATABASE DOC_ID NAME",
		Short: "Download an attachment",
		Long:  "Download an attachment to stdout or to the file given by --file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			attachment, err := client.DB(args[0]).LoadAttachment(cmd.Context(), args[1], args[2])
			if err != nil {
				return fmt.Errorf("failed to load attachment: %w", err)
			}
			defer func() { _ = attachment.Close() }()

			out := cmd.OutOrStdout()

			if outputFile != "" {
				file, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.ConfigFilePerm)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() { _ = file.Close() }()

				out = file
			}

			written, err := io.Copy(out, attachment.Body)
			if err != nil {
				return fmt.Errorf("failed to write attachment: %w", err)
			}

			if outputFile != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s Wrote %d bytes (%s) to %s\n",
					constants.CheckMarkSymbol, written, attachment.ContentType, outputFile)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "write the attachment to this file")

	return cmd
}

func newAttachmentsDeleteCommand() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "delete DATABASE DOC_ID NAME",
		Short: "Delete an attachment",
		Long:  "Delete an attachment from the given revision of a document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rev == "" {
				return constants.ErrRevisionRequired
			}

			client, err := createClient(cmd)
			if err != nil {
				return err
			}

			result, err := client.DB(args[0]).DeleteAttachment(cmd.Context(), args[1], rev, args[2])
			if err != nil {
				return fmt.Errorf("failed to delete attachment: %w", err)
			}

			return renderSaveResult(cmd.OutOrStdout(), "Deleted", result)
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "current revision of the document (required)")

	return cmd
}
