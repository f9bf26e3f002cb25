package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	internalhttp "github.com/fivetwenty-io/couchdb-client/internal/http"
	"github.com/fivetwenty-io/couchdb-client/internal/query"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// Database implements couch.Database.
type Database struct {
	client *Client
	name   string
	path   string
}

func newDatabase(client *Client, name string) *Database {
	return &Database{
		client: client,
		name:   name,
		path:   dbPath(name),
	}
}

// Name implements couch.Database.Name.
func (d *Database) Name() string {
	return d.name
}

// Do implements couch.Database.Do. path is relative to the database URL and
// may be empty.
func (d *Database) Do(ctx context.Context, method, path string, params *couch.CallParams, out any) error {
	return d.client.httpClient.DoJSON(ctx, callRequest(method, d.path+path, params), out)
}

// Compact implements couch.Database.Compact.
func (d *Database) Compact(ctx context.Context) error {
	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method:  http.MethodPost,
		Path:    d.path + "/" + constants.PathCompact,
		Headers: map[string]string{constants.HeaderContentType: constants.ContentTypeJSON},
	}, nil)
	if err != nil {
		return fmt.Errorf("compacting database %s: %w", d.name, err)
	}

	return nil
}

// AllDocs implements couch.DocumentsClient.AllDocs.
func (d *Database) AllDocs(ctx context.Context, params *couch.ListParams) (*couch.ViewResponse, error) {
	queryParams, err := query.EncodeList(params)
	if err != nil {
		return nil, fmt.Errorf("listing documents of %s: %w", d.name, err)
	}

	var resp couch.ViewResponse

	err = d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   d.path + "/" + constants.PathAllDocs,
		Query:  queryParams,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("listing documents of %s: %w", d.name, err)
	}

	return &resp, nil
}

// LoadDoc implements couch.DocumentsClient.LoadDoc.
func (d *Database) LoadDoc(ctx context.Context, docID string, params *couch.LoadDocParams) (couch.Document, error) {
	var doc couch.Document

	found, err := d.LoadDocInto(ctx, docID, params, &doc)
	if err != nil || !found {
		return nil, err
	}

	return doc, nil
}

// LoadDocInto implements couch.DocumentsClient.LoadDocInto.
func (d *Database) LoadDocInto(ctx context.Context, docID string, params *couch.LoadDocParams, out any) (bool, error) {
	if docID == "" {
		return false, couch.ErrDocumentIDRequired
	}

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   d.docPath(docID),
		Query:  query.EncodeLoadDoc(params),
	}, out)
	if err != nil {
		if couch.IsNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("loading document %s: %w", docID, err)
	}

	return true, nil
}

// DeleteDoc implements couch.DocumentsClient.DeleteDoc.
func (d *Database) DeleteDoc(ctx context.Context, docID, rev string) (*couch.SaveResult, error) {
	if docID == "" {
		return nil, couch.ErrDocumentIDRequired
	}

	var result couch.SaveResult

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodDelete,
		Path:   d.docPath(docID),
		Query:  revParams(rev),
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("deleting document %s: %w", docID, err)
	}

	return &result, nil
}

type bulkDeletion struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev"`
	Deleted bool   `json:"_deleted"`
}

// BulkDeleteDocs implements couch.DocumentsClient.BulkDeleteDocs. Per
// document failures are reported in the results, not as an error.
func (d *Database) BulkDeleteDocs(ctx context.Context, docs []couch.IDRev) ([]couch.BulkResult, error) {
	deletions := make([]bulkDeletion, 0, len(docs))
	for _, doc := range docs {
		deletions = append(deletions, bulkDeletion{ID: doc.ID, Rev: doc.Rev, Deleted: true})
	}

	var results []couch.BulkResult

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodPost,
		Path:   d.path + "/" + constants.PathBulkDocs,
		Body:   couch.JSONBody{Value: map[string]any{"docs": deletions}},
	}, &results)
	if err != nil {
		return nil, fmt.Errorf("bulk deleting documents of %s: %w", d.name, err)
	}

	return results, nil
}

func (d *Database) docPath(docID string) string {
	return d.path + "/" + docSegment(docID)
}

func revParams(rev string) couch.Params {
	if rev == "" {
		return nil
	}

	return couch.Params{{Key: "rev", Value: rev}}
}
