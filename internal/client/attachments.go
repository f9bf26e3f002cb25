package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	internalhttp "github.com/fivetwenty-io/couchdb-client/internal/http"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// AddAttachmentFromFile implements couch.AttachmentsClient.AddAttachmentFromFile.
// Without an explicit content type, the type is derived from the file
// extension.
func (d *Database) AddAttachmentFromFile(ctx context.Context, docID, rev, name, filePath string, params *couch.AddAttachmentParams) (*couch.SaveResult, error) {
	file, err := os.Open(filePath) //nolint:gosec // path supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("opening attachment file: %w", err)
	}

	defer func() { _ = file.Close() }()

	contentType := ""
	if params != nil {
		contentType = params.ContentType
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filePath))
	}

	return d.AddAttachmentFromStream(ctx, docID, rev, name, file, &couch.AddAttachmentParams{ContentType: contentType})
}

// AddAttachmentFromStream implements couch.AttachmentsClient.AddAttachmentFromStream.
// An empty rev creates the document. Only an io.ReadSeeker stream is sent
// without being buffered in memory.
func (d *Database) AddAttachmentFromStream(ctx context.Context, docID, rev, name string, stream io.Reader, params *couch.AddAttachmentParams) (*couch.SaveResult, error) {
	if docID == "" {
		return nil, couch.ErrDocumentIDRequired
	}

	if name == "" || stream == nil {
		return nil, couch.ErrAttachmentRequired
	}

	contentType := constants.ContentTypeOctetStream
	if params != nil && params.ContentType != "" {
		contentType = params.ContentType
	}

	var result couch.SaveResult

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method:  http.MethodPut,
		Path:    d.attachmentPath(docID, name),
		Query:   revParams(rev),
		Body:    couch.StreamBody{Reader: stream},
		Headers: map[string]string{constants.HeaderContentType: contentType},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("adding attachment %s to %s: %w", name, docID, err)
	}

	return &result, nil
}

// LoadAttachment implements couch.AttachmentsClient.LoadAttachment. The
// caller must close the returned attachment.
func (d *Database) LoadAttachment(ctx context.Context, docID, name string) (*couch.Attachment, error) {
	if docID == "" {
		return nil, couch.ErrDocumentIDRequired
	}

	resp, err := d.client.httpClient.Open(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   d.attachmentPath(docID, name),
	})
	if err != nil {
		return nil, fmt.Errorf("loading attachment %s of %s: %w", name, docID, err)
	}

	contentLength, parseErr := strconv.ParseInt(resp.Headers.Get("Content-Length"), 10, 64)
	if parseErr != nil {
		contentLength = -1
	}

	return &couch.Attachment{
		ContentType:   resp.Headers.Get(constants.HeaderContentType),
		ContentLength: contentLength,
		Body:          resp.Body,
	}, nil
}

// DeleteAttachment implements couch.AttachmentsClient.DeleteAttachment.
func (d *Database) DeleteAttachment(ctx context.Context, docID, rev, name string) (*couch.SaveResult, error) {
	if docID == "" {
		return nil, couch.ErrDocumentIDRequired
	}

	var result couch.SaveResult

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodDelete,
		Path:   d.attachmentPath(docID, name),
		Query:  revParams(rev),
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("deleting attachment %s of %s: %w", name, docID, err)
	}

	return &result, nil
}

func (d *Database) attachmentPath(docID, name string) string {
	return d.docPath(docID) + "/" + attachmentSegment(name)
}
