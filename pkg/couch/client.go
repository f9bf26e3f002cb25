package couch

import (
	"context"
	"io"
)

// ServerClient provides the server-level operations.
type ServerClient interface {
	// URL returns the server address without a trailing slash.
	URL() string
	Info(ctx context.Context) (*ServerInfo, error)
	ListAllDBs(ctx context.Context, params *ListParams) ([]string, error)
}

// DatabasesClient manages databases.
type DatabasesClient interface {
	// CreateDB creates a database. An existing database is not an error.
	CreateDB(ctx context.Context, name string) (Database, error)
	// DeleteDB reports whether the database existed and was deleted.
	DeleteDB(ctx context.Context, name string) (bool, error)
	HasDB(ctx context.Context, name string) (bool, error)
	DB(name string) Database
}

// Client is a connection to a CouchDB server. It is safe for concurrent use.
type Client interface {
	ServerClient
	DatabasesClient

	// Do dispatches a raw call relative to the server URL and decodes the
	// JSON response into out.
	Do(ctx context.Context, method, path string, params *CallParams, out any) error
}

// DocumentsClient provides the document operations of a database.
type DocumentsClient interface {
	AllDocs(ctx context.Context, params *ListParams) (*ViewResponse, error)
	// LoadDoc returns nil without error when the document does not exist.
	LoadDoc(ctx context.Context, docID string, params *LoadDocParams) (Document, error)
	// LoadDocInto decodes the document into out and reports whether it exists.
	LoadDocInto(ctx context.Context, docID string, params *LoadDocParams, out any) (bool, error)
	SaveDoc(ctx context.Context, doc Identifiable, opts ...SaveOption) (*SaveResult, error)
	DeleteDoc(ctx context.Context, docID, rev string) (*SaveResult, error)
	BulkDeleteDocs(ctx context.Context, docs []IDRev) ([]BulkResult, error)
}

// AttachmentsClient provides the attachment operations of a database.
type AttachmentsClient interface {
	AddAttachmentFromFile(ctx context.Context, docID, rev, name, filePath string, params *AddAttachmentParams) (*SaveResult, error)
	// AddAttachmentFromStream uploads stream as the attachment. A stream that
	// is not an io.ReadSeeker is buffered in memory first.
	AddAttachmentFromStream(ctx context.Context, docID, rev, name string, stream io.Reader, params *AddAttachmentParams) (*SaveResult, error)
	LoadAttachment(ctx context.Context, docID, name string) (*Attachment, error)
	DeleteAttachment(ctx context.Context, docID, rev, name string) (*SaveResult, error)
}

// ViewsClient provides design document and view operations of a database.
type ViewsClient interface {
	LoadDesignDoc(ctx context.Context, name string) (*DesignDoc, error)
	CompileDesignDoc(name string, params *CompileDesignDocParams) *DesignDoc
	SaveDesignDoc(ctx context.Context, name string, params *CompileDesignDocParams) (*SaveResult, error)
	QueryView(ctx context.Context, designDoc, view string, params *QueryParams) (*ViewResponse, error)
}

// Database is a handle on one database of a server.
type Database interface {
	DocumentsClient
	AttachmentsClient
	ViewsClient

	Name() string
	Compact(ctx context.Context) error
	// Do dispatches a raw call relative to the database URL.
	Do(ctx context.Context, method, path string, params *CallParams, out any) error
}
