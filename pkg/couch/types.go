package couch

import (
	"io"
)

// EndOfUnicode is the last character of the Unicode range CouchDB collates.
// Append it to a prefix to build an upper key bound for range queries.
const EndOfUnicode = "\ufff0"

// Identifiable is implemented by anything that can be stored as a document.
type Identifiable interface {
	IDRev() (id string, rev string)
	SetIDRev(id string, rev string)
}

// Doc holds the reserved document fields. Embed it in your own structs:
//
//	type Person struct {
//	  couch.Doc
//	  Name string `json:"name"`
//	}
type Doc struct {
	ID          string         `json:"_id,omitempty"          yaml:"_id,omitempty"`
	Rev         string         `json:"_rev,omitempty"         yaml:"_rev,omitempty"`
	Deleted     bool           `json:"_deleted,omitempty"     yaml:"_deleted,omitempty"`
	Attachments map[string]any `json:"_attachments,omitempty" yaml:"_attachments,omitempty"`
}

// IDRev implements Identifiable.
func (d *Doc) IDRev() (string, string) {
	return d.ID, d.Rev
}

// SetIDRev implements Identifiable.
func (d *Doc) SetIDRev(id string, rev string) {
	d.ID, d.Rev = id, rev
}

// Document is a schemaless document.
type Document map[string]any

// IDRev implements Identifiable.
func (d Document) IDRev() (string, string) {
	id, _ := d["_id"].(string)
	rev, _ := d["_rev"].(string)

	return id, rev
}

// SetIDRev implements Identifiable. An empty rev removes the _rev field.
func (d Document) SetIDRev(id string, rev string) {
	d["_id"] = id

	if rev == "" {
		delete(d, "_rev")

		return
	}

	d["_rev"] = rev
}

// ID returns the _id field.
func (d Document) ID() string {
	id, _ := d.IDRev()

	return id
}

// Rev returns the _rev field.
func (d Document) Rev() string {
	_, rev := d.IDRev()

	return rev
}

// Deleted reports whether the _deleted flag is set.
func (d Document) Deleted() bool {
	deleted, _ := d["_deleted"].(bool)

	return deleted
}

// IDRev pairs a document id with a revision, used by bulk deletion.
type IDRev struct {
	ID  string `json:"_id"  yaml:"_id"`
	Rev string `json:"_rev" yaml:"_rev"`
}

// SaveResult is the server confirmation of a document write.
//
// After SaveDoc resolved a conflict and the single retry failed too, OK is
// false and Rev holds the revision the document carried at that point.
// Callers using conflict resolution must check OK.
type SaveResult struct {
	OK  bool   `json:"ok"  yaml:"ok"`
	ID  string `json:"id"  yaml:"id"`
	Rev string `json:"rev" yaml:"rev"`
}

// BulkResult is one entry of a _bulk_docs response.
type BulkResult struct {
	OK     bool   `json:"ok,omitempty"     yaml:"ok,omitempty"`
	ID     string `json:"id"               yaml:"id"`
	Rev    string `json:"rev,omitempty"    yaml:"rev,omitempty"`
	Error  string `json:"error,omitempty"  yaml:"error,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ServerInfo is the response of GET /.
type ServerInfo struct {
	CouchDB  string   `json:"couchdb"            yaml:"couchdb"`
	Version  string   `json:"version"            yaml:"version"`
	GitSHA   string   `json:"git_sha,omitempty"  yaml:"git_sha,omitempty"`
	UUID     string   `json:"uuid,omitempty"     yaml:"uuid,omitempty"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
	Vendor   struct {
		Name    string `json:"name"              yaml:"name"`
		Version string `json:"version,omitempty" yaml:"version,omitempty"`
	} `json:"vendor" yaml:"vendor"`
}

// ViewRow is one row of a view or _all_docs response.
type ViewRow struct {
	// ID of the document that emitted the row.
	ID string `json:"id" yaml:"id"`
	// Key emitted by the map function.
	Key any `json:"key" yaml:"key"`
	// Value emitted by the map function, or the reduced value.
	Value any `json:"value" yaml:"value"`
	// Doc is set when the query used include_docs.
	Doc Document `json:"doc,omitempty" yaml:"doc,omitempty"`
}

// ViewResponse is the response of a view or _all_docs query.
type ViewResponse struct {
	TotalRows int       `json:"total_rows" yaml:"total_rows"`
	Offset    int       `json:"offset"     yaml:"offset"`
	Rows      []ViewRow `json:"rows"       yaml:"rows"`
}

// DesignDocView holds the map and reduce sources of a view.
type DesignDocView struct {
	Map    string `json:"map,omitempty"    yaml:"map,omitempty"`
	Reduce string `json:"reduce,omitempty" yaml:"reduce,omitempty"`
}

// DesignDoc is a design document holding view definitions.
type DesignDoc struct {
	Doc

	Language string                   `json:"language,omitempty" yaml:"language,omitempty"`
	Views    map[string]DesignDocView `json:"views,omitempty"    yaml:"views,omitempty"`
}

// CompileDesignDocParams lists the map and reduce function sources per view.
// Reduce sources may also name a built-in reducer such as "_count" or "_sum".
type CompileDesignDocParams struct {
	MapViews    map[string]string
	ReduceViews map[string]string
}

// ListParams are the options of _all_dbs and _all_docs.
type ListParams struct {
	Limit       *int
	Skip        *int
	Descending  *bool
	IncludeDocs *bool
	Key         any
	Keys        []any
	StartKey    any
	EndKey      any
}

// QueryParams are the options of a view query.
type QueryParams struct {
	Limit        *int
	Skip         *int
	Descending   *bool
	Key          any
	Keys         []any
	StartKey     any
	EndKey       any
	IncludeDocs  *bool
	InclusiveEnd *bool
	Sorted       *bool
	// Reduce defaults to false when nil.
	Reduce     *bool
	Group      *bool
	GroupLevel *int
	// Update is one of "true", "false" or "lazy".
	Update    string
	Stable    *bool
	Conflicts *bool
	// Extra parameters are appended as-is, in key order.
	Extra map[string]any
}

// LoadDocParams are the options of a document read.
type LoadDocParams struct {
	Attachments     *bool
	AttEncodingInfo *bool
	Conflicts       *bool
	RevsInfo        *bool
	// Rev requests a specific revision.
	Rev string
}

// AddAttachmentParams are the options of an attachment upload.
type AddAttachmentParams struct {
	// ContentType defaults to the type derived from the file name, then
	// application/octet-stream.
	ContentType string
}

// Attachment is a streamed attachment body. Callers must close Body.
type Attachment struct {
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}

// Close closes the attachment body.
func (a *Attachment) Close() error {
	return a.Body.Close()
}

// Bool returns a pointer to v, for the optional fields of the params structs.
func Bool(v bool) *bool {
	return &v
}

// Int returns a pointer to v, for the optional fields of the params structs.
func Int(v int) *int {
	return &v
}
