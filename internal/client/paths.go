package client

import (
	"net/url"
	"strings"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
)

// dbPath returns the escaped path of a database. Slashes in the name are
// escaped as well.
func dbPath(name string) string {
	return "/" + url.PathEscape(name)
}

// docSegment escapes a document id. The _design/ and _local/ prefixes stay
// literal.
func docSegment(id string) string {
	for _, prefix := range []string{constants.DesignPrefix, constants.LocalPrefix} {
		if rest, ok := strings.CutPrefix(id, prefix); ok {
			return prefix + url.PathEscape(rest)
		}
	}

	return url.PathEscape(id)
}

// attachmentSegment escapes an attachment name, keeping its slashes.
func attachmentSegment(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
