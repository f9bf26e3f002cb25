// Package couchclient is the entry point for building a CouchDB client that
// implements the couch.Client interface.
//
// Quick start
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
//
//	  client, err := couchclient.NewWithPassword("127.0.0.1:5984", "admin", "secret")
//	  if err != nil { log.Fatal(err) }
//
//	  db, err := client.CreateDB(ctx, "people")
//	  if err != nil { log.Fatal(err) }
//
//	  doc := couch.Document{"name": "Anna"}
//	  result, err := db.SaveDoc(ctx, doc)
//	  if err != nil { log.Fatal(err) }
//	  if !result.OK { log.Print("write lost to a concurrent update") }
//	}
//
// Addresses without a scheme get "http://". Trailing slashes are dropped.
package couchclient
