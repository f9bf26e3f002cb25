package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout bounds the reachability check made by Connect.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryWaitMin is the minimum wait between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between transport retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ConflictJitterMax bounds the random delay, in milliseconds, before a
	// conflicting write is re-read and retried.
	ConflictJitterMax = 1000

	// ConflictJitterUnit is the unit of the conflict jitter.
	ConflictJitterUnit = time.Millisecond
)

// HTTP headers and content types.
const (
	// HeaderAuthorization carries the credential.
	HeaderAuthorization = "Authorization"

	// HeaderAccept is always application/json.
	HeaderAccept = "Accept"

	// HeaderContentType is forced for JSON bodies.
	HeaderContentType = "Content-Type"

	// HeaderUserAgent identifies the client.
	HeaderUserAgent = "User-Agent"

	// ContentTypeJSON is the type of JSON requests and responses.
	ContentTypeJSON = "application/json"

	// ContentTypeOctetStream is the fallback attachment type.
	ContentTypeOctetStream = "application/octet-stream"

	// DefaultUserAgent is sent unless overridden.
	DefaultUserAgent = "couchdb-client-go/1.0"
)

// Server paths.
const (
	// PathAllDBs lists the databases of a server.
	PathAllDBs = "/_all_dbs"

	// PathAllDocs lists the documents of a database.
	PathAllDocs = "_all_docs"

	// PathBulkDocs writes many documents at once.
	PathBulkDocs = "_bulk_docs"

	// PathCompact starts a compaction.
	PathCompact = "_compact"

	// DesignPrefix prefixes design document ids.
	DesignPrefix = "_design/"

	// LocalPrefix prefixes local document ids.
	LocalPrefix = "_local/"

	// ViewSegment separates a design document from its view name.
	ViewSegment = "_view"

	// DesignLanguage is the language of compiled design documents.
	DesignLanguage = "javascript"
)

// UI and display constants.
const (
	// CheckMarkSymbol represents a check mark.
	CheckMarkSymbol = "✓"

	// CrossMarkSymbol represents a failure.
	CrossMarkSymbol = "✗"

	// NotAvailable represents unavailable data.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide secrets in output.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatTable is the default output format.
	FormatTable = "table"

	// FormatJSON represents JSON format.
	FormatJSON = "json"

	// FormatYAML represents YAML format.
	FormatYAML = "yaml"
)
