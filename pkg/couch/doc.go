// Package couch provides types, interfaces, and helpers for working with a
// CouchDB-compatible server over HTTP.
//
// # Overview
//
// The couch package defines the document and view types (Document, Doc,
// ViewResponse, DesignDoc), the parameter structs used by the database
// operations, the classified error types, and the Client and Database
// interfaces. A concrete implementation is provided by the couchclient
// package, which wires configuration, transport and authentication. Most
// consumers import couchclient to construct a client and then use the
// interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/couchdb-client/pkg/couch"
//	  "github.com/fivetwenty-io/couchdb-client/pkg/couchclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := couchclient.New(ctx, &couch.Config{
//	    URL:      "http://127.0.0.1:5984",
//	    Username: "admin",
//	    Password: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  db, err := cli.CreateDB(ctx, "people")
//	  if err != nil { log.Fatal(err) }
//
//	  res, err := db.SaveDoc(ctx, couch.Document{"name": "Anna"})
//	  if err != nil { log.Fatal(err) }
//	  if !res.OK { log.Printf("write lost to a concurrent writer: %s", res.ID) }
//	}
//
// # Saving documents
//
// SaveDoc writes a document and, when the server answers with a conflict,
// waits a random delay below one second, re-reads the current revision and
// retries exactly once. If the retry fails as well no error is returned:
// the result carries OK=false instead. Callers that want strict revision
// semantics pass WithoutConflictResolution().
//
// # Views
//
// QueryParams describes a view query. Key, Keys, StartKey and EndKey are
// sent as JSON literals, and Reduce defaults to false unless set, whatever
// the design document declares. EndOfUnicode is a convenient upper bound
// for prefix range queries:
//
//	db.QueryView(ctx, "people", "by_name", &couch.QueryParams{
//	  StartKey: "An",
//	  EndKey:   "An" + couch.EndOfUnicode,
//	})
//
// # Errors
//
// Non-2xx responses are returned as *Error values carrying the status, the
// "METHOD|path" identity of the call and the raw response body. IsNotFound
// and IsConflict branch on the classification. Failures to reach the server
// are *TransportError values matching ErrServerUnreachable; successful
// responses that are not valid JSON match ErrDecode.
package couch
