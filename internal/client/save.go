package client

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	internalhttp "github.com/fivetwenty-io/couchdb-client/internal/http"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// SaveDoc implements couch.DocumentsClient.SaveDoc.
//
// A document without id gets a generated one. When the write conflicts and
// conflict resolution is enabled, SaveDoc waits up to a second, adopts the
// revision currently stored (or drops its own when the document is gone)
// and writes once more. If that write fails too, the result has OK set to
// false and no error is returned. On success the new revision is written
// back into doc.
func (d *Database) SaveDoc(ctx context.Context, doc couch.Identifiable, opts ...couch.SaveOption) (*couch.SaveResult, error) {
	if isNilDocument(doc) {
		return nil, couch.ErrDocumentRequired
	}

	options := couch.NewSaveOptions(opts...)

	docID, rev := doc.IDRev()
	if docID == "" {
		docID = d.client.random.NewID()
		doc.SetIDRev(docID, rev)
	}

	result, err := d.putDoc(ctx, docID, doc)
	if err == nil {
		doc.SetIDRev(result.ID, result.Rev)

		return result, nil
	}

	if !options.ConflictResolution || !couch.IsConflict(err) {
		return nil, err
	}

	err = d.adoptCurrentRev(ctx, docID, doc)
	if err != nil {
		return nil, err
	}

	result, err = d.putDoc(ctx, docID, doc)
	if err != nil {
		_, rev = doc.IDRev()

		d.client.logger.Error("couchdb: cross racing occurred", map[string]interface{}{
			"db":    d.name,
			"id":    docID,
			"rev":   rev,
			"error": err.Error(),
		})

		return &couch.SaveResult{OK: false, ID: docID, Rev: rev}, nil
	}

	doc.SetIDRev(result.ID, result.Rev)

	return result, nil
}

// isNilDocument reports whether doc is nil or holds a nil map or pointer.
func isNilDocument(doc couch.Identifiable) bool {
	if doc == nil {
		return true
	}

	value := reflect.ValueOf(doc)
	switch value.Kind() {
	case reflect.Map, reflect.Pointer:
		return value.IsNil()
	default:
		return false
	}
}

// adoptCurrentRev waits a random delay, then sets the revision of doc to the
// one stored on the server, or clears it when the document does not exist.
func (d *Database) adoptCurrentRev(ctx context.Context, docID string, doc couch.Identifiable) error {
	delay := time.Duration(d.client.random.Intn(constants.ConflictJitterMax)) * constants.ConflictJitterUnit

	err := d.client.sleep(ctx, delay)
	if err != nil {
		return fmt.Errorf("waiting before retrying %s: %w", docID, err)
	}

	var current couch.IDRev

	found, err := d.LoadDocInto(ctx, docID, nil, &current)
	if err != nil {
		return fmt.Errorf("re-reading conflicting document %s: %w", docID, err)
	}

	if found {
		doc.SetIDRev(docID, current.Rev)
	} else {
		doc.SetIDRev(docID, "")
	}

	return nil
}

func (d *Database) putDoc(ctx context.Context, docID string, doc couch.Identifiable) (*couch.SaveResult, error) {
	var result couch.SaveResult

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodPut,
		Path:   d.docPath(docID),
		Body:   couch.JSONBody{Value: doc},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("saving document %s: %w", docID, err)
	}

	return &result, nil
}
