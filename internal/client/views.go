package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	internalhttp "github.com/fivetwenty-io/couchdb-client/internal/http"
	"github.com/fivetwenty-io/couchdb-client/internal/query"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// LoadDesignDoc implements couch.ViewsClient.LoadDesignDoc. A missing design
// document is an error.
func (d *Database) LoadDesignDoc(ctx context.Context, name string) (*couch.DesignDoc, error) {
	var designDoc couch.DesignDoc

	err := d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   d.docPath(constants.DesignPrefix + name),
	}, &designDoc)
	if err != nil {
		return nil, fmt.Errorf("loading design document %s: %w", name, err)
	}

	return &designDoc, nil
}

// CompileDesignDoc implements couch.ViewsClient.CompileDesignDoc.
func (d *Database) CompileDesignDoc(name string, params *couch.CompileDesignDocParams) *couch.DesignDoc {
	return couch.CompileDesignDoc(name, params)
}

// SaveDesignDoc implements couch.ViewsClient.SaveDesignDoc. The design
// document is compiled and saved with conflict resolution, so an existing
// one is replaced.
func (d *Database) SaveDesignDoc(ctx context.Context, name string, params *couch.CompileDesignDocParams) (*couch.SaveResult, error) {
	return d.SaveDoc(ctx, d.CompileDesignDoc(name, params))
}

// QueryView implements couch.ViewsClient.QueryView.
func (d *Database) QueryView(ctx context.Context, designDoc, view string, params *couch.QueryParams) (*couch.ViewResponse, error) {
	queryParams, err := query.EncodeView(params)
	if err != nil {
		return nil, fmt.Errorf("querying view %s/%s: %w", designDoc, view, err)
	}

	path := d.docPath(constants.DesignPrefix+designDoc) + "/" + constants.ViewSegment + "/" + url.PathEscape(view)

	var resp couch.ViewResponse

	err = d.client.httpClient.DoJSON(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  queryParams,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("querying view %s/%s: %w", designDoc, view, err)
	}

	return &resp, nil
}
