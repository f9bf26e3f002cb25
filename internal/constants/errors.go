package constants

import "errors"

// Configuration errors.
var (
	ErrNoURLConfigured  = errors.New("no server URL configured, use --url or 'url' in the config file")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrPasswordPrompt   = errors.New("cannot prompt for a password: stdin is not a terminal")
)

// Argument errors.
var (
	ErrInvalidOutputFormat = errors.New("invalid output format, expected table, json or yaml")
	ErrInvalidDocument     = errors.New("document must be a JSON object")
	ErrRevisionRequired    = errors.New("--rev flag is required")
	ErrViewSourceRequired  = errors.New("at least one --map view is required")
	ErrInvalidViewSpec     = errors.New("view must be given as name=source")
)

// Operation errors.
var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDatabaseNotFound  = errors.New("database not found")
	ErrSaveNotConfirmed  = errors.New("save was not confirmed by the server")
	ErrBulkDeleteFailure = errors.New("some documents could not be deleted")
)
