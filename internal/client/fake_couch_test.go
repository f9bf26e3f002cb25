package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// recordedRequest is one request seen by fakeCouch.
type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
}

type fakeAttachment struct {
	ContentType string
	Data        []byte
}

type fakeDoc struct {
	Body        map[string]any
	Generation  int
	Rev         string
	Deleted     bool
	Attachments map[string]fakeAttachment
}

// viewFunc emits the rows of one document.
type viewFunc func(doc map[string]any) []couch.ViewRow

// fakeCouch is a small in-memory CouchDB covering the endpoints the client
// uses.
type fakeCouch struct {
	mu       sync.Mutex
	dbs      map[string]map[string]*fakeDoc
	views    map[string]viewFunc
	requests []recordedRequest
	seq      int

	// forcedStatus answers every PUT of a document id with a status code.
	forcedStatus map[string]int
	// afterPut runs after a successful document PUT, outside the lock.
	afterPut func(db, id string)
}

func newFakeCouch(t *testing.T) (*fakeCouch, *httptest.Server) {
	t.Helper()

	fake := &fakeCouch{
		dbs:          make(map[string]map[string]*fakeDoc),
		views:        make(map[string]viewFunc),
		forcedStatus: make(map[string]int),
	}

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return fake, server
}

func (f *fakeCouch) addView(designDoc, view string, fn viewFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.views[designDoc+"/"+view] = fn
}

func (f *fakeCouch) forceStatus(id string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.forcedStatus[id] = status
}

func (f *fakeCouch) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]recordedRequest(nil), f.requests...)
}

// countRequests counts the recorded requests with method and escaped path.
func (f *fakeCouch) countRequests(method, path string) int {
	count := 0

	for _, req := range f.recorded() {
		if req.Method == method && req.Path == path {
			count++
		}
	}

	return count
}

func (f *fakeCouch) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:   request.Method,
		Path:     request.URL.EscapedPath(),
		RawQuery: request.URL.RawQuery,
		Header:   request.Header.Clone(),
	})
	f.mu.Unlock()

	segments := strings.Split(strings.TrimPrefix(request.URL.EscapedPath(), "/"), "/")
	for i, segment := range segments {
		if unescaped, err := url.PathUnescape(segment); err == nil {
			segments[i] = unescaped
		}
	}

	switch {
	case request.URL.Path == "/":
		writeJSON(writer, http.StatusOK, map[string]any{
			"couchdb": "Welcome",
			"version": "3.3.3",
			"vendor":  map[string]any{"name": "The Apache Software Foundation"},
		})
	case segments[0] == "_all_dbs":
		f.listDBs(writer)
	case len(segments) == 1:
		f.serveDB(writer, request, segments[0])
	default:
		f.serveInDB(writer, request, segments[0], segments[1:])
	}
}

func (f *fakeCouch) listDBs(writer http.ResponseWriter) {
	f.mu.Lock()
	names := make([]string, 0, len(f.dbs))

	for name := range f.dbs {
		names = append(names, name)
	}
	f.mu.Unlock()

	sort.Strings(names)
	writeJSON(writer, http.StatusOK, names)
}

func (f *fakeCouch) serveDB(writer http.ResponseWriter, request *http.Request, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, exists := f.dbs[name]

	switch request.Method {
	case http.MethodPut:
		if name == "" || strings.ToLower(name) != name || strings.HasPrefix(name, "_") {
			writeError(writer, http.StatusBadRequest, "illegal_database_name", "Name: '"+name+"'.")

			return
		}

		if exists {
			writeError(writer, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")

			return
		}

		f.dbs[name] = make(map[string]*fakeDoc)
		writeJSON(writer, http.StatusCreated, map[string]bool{"ok": true})
	case http.MethodDelete:
		if !exists {
			writeError(writer, http.StatusNotFound, "not_found", "Database does not exist.")

			return
		}

		delete(f.dbs, name)
		writeJSON(writer, http.StatusOK, map[string]bool{"ok": true})
	case http.MethodGet:
		if !exists {
			writeError(writer, http.StatusNotFound, "not_found", "Database does not exist.")

			return
		}

		writeJSON(writer, http.StatusOK, map[string]any{"db_name": name, "doc_count": len(f.dbs[name])})
	default:
		writeError(writer, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,PUT,DELETE allowed")
	}
}

func (f *fakeCouch) serveInDB(writer http.ResponseWriter, request *http.Request, db string, rest []string) {
	f.mu.Lock()
	docs, exists := f.dbs[db]
	f.mu.Unlock()

	if !exists {
		writeError(writer, http.StatusNotFound, "not_found", "Database does not exist.")

		return
	}

	switch rest[0] {
	case "_compact":
		writeJSON(writer, http.StatusAccepted, map[string]bool{"ok": true})

		return
	case "_all_docs":
		f.allDocs(writer, request, docs)

		return
	case "_bulk_docs":
		f.bulkDocs(writer, request, docs)

		return
	}

	id := rest[0]
	rest = rest[1:]

	if (id == "_design" || id == "_local") && len(rest) > 0 {
		id += "/" + rest[0]
		rest = rest[1:]
	}

	switch {
	case len(rest) == 0:
		f.serveDoc(writer, request, db, docs, id)
	case len(rest) == 2 && rest[0] == "_view":
		f.queryView(writer, request, docs, strings.TrimPrefix(id, "_design/"), rest[1])
	default:
		f.serveAttachment(writer, request, docs, id, strings.Join(rest, "/"))
	}
}

func (f *fakeCouch) nextRev(doc *fakeDoc) {
	f.seq++
	doc.Generation++
	doc.Rev = fmt.Sprintf("%d-%032x", doc.Generation, f.seq)
}

func (f *fakeCouch) serveDoc(writer http.ResponseWriter, request *http.Request, db string, docs map[string]*fakeDoc, id string) {
	switch request.Method {
	case http.MethodGet:
		f.mu.Lock()
		defer f.mu.Unlock()

		doc, ok := docs[id]
		if !ok || doc.Deleted {
			writeError(writer, http.StatusNotFound, "not_found", "missing")

			return
		}

		writeJSON(writer, http.StatusOK, doc.render(id))
	case http.MethodPut:
		var body map[string]any

		err := json.NewDecoder(request.Body).Decode(&body)
		if err != nil {
			writeError(writer, http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")

			return
		}

		f.mu.Lock()

		if status, forced := f.forcedStatus[id]; forced {
			f.mu.Unlock()
			writeError(writer, status, statusType(status), "forced")

			return
		}

		doc, ok := docs[id]
		rev, _ := body["_rev"].(string)

		switch {
		case ok && !doc.Deleted && rev != doc.Rev:
			f.mu.Unlock()
			writeError(writer, http.StatusConflict, "conflict", "Document update conflict.")

			return
		case (!ok || doc.Deleted) && rev != "":
			f.mu.Unlock()
			writeError(writer, http.StatusConflict, "conflict", "Document update conflict.")

			return
		}

		if !ok {
			doc = &fakeDoc{}
			docs[id] = doc
		}

		delete(body, "_id")
		delete(body, "_rev")

		doc.Body = body
		doc.Deleted = false
		f.nextRev(doc)

		result := couch.SaveResult{OK: true, ID: id, Rev: doc.Rev}
		afterPut := f.afterPut
		f.mu.Unlock()

		writeJSON(writer, http.StatusCreated, result)

		if afterPut != nil {
			afterPut(db, id)
		}
	case http.MethodDelete:
		f.mu.Lock()
		defer f.mu.Unlock()

		doc, ok := docs[id]
		if !ok || doc.Deleted {
			writeError(writer, http.StatusNotFound, "not_found", "deleted")

			return
		}

		if request.URL.Query().Get("rev") != doc.Rev {
			writeError(writer, http.StatusConflict, "conflict", "Document update conflict.")

			return
		}

		doc.Deleted = true
		f.nextRev(doc)
		writeJSON(writer, http.StatusOK, couch.SaveResult{OK: true, ID: id, Rev: doc.Rev})
	default:
		writeError(writer, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,PUT,DELETE allowed")
	}
}

func (f *fakeCouch) serveAttachment(writer http.ResponseWriter, request *http.Request, docs map[string]*fakeDoc, id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := docs[id]
	live := ok && !doc.Deleted

	switch request.Method {
	case http.MethodGet:
		if !live {
			writeError(writer, http.StatusNotFound, "not_found", "missing")

			return
		}

		attachment, found := doc.Attachments[name]
		if !found {
			writeError(writer, http.StatusNotFound, "not_found", "Document is missing attachment")

			return
		}

		writer.Header().Set("Content-Type", attachment.ContentType)
		writer.Header().Set("Content-Length", strconv.Itoa(len(attachment.Data)))
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write(attachment.Data)
	case http.MethodPut, http.MethodDelete:
		rev := request.URL.Query().Get("rev")
		if (live && rev != doc.Rev) || (!live && rev != "") {
			writeError(writer, http.StatusConflict, "conflict", "Document update conflict.")

			return
		}

		if !live {
			doc = &fakeDoc{Body: map[string]any{}}
			docs[id] = doc
		}

		if doc.Attachments == nil {
			doc.Attachments = make(map[string]fakeAttachment)
		}

		if request.Method == http.MethodPut {
			data, _ := io.ReadAll(request.Body)
			doc.Attachments[name] = fakeAttachment{ContentType: request.Header.Get("Content-Type"), Data: data}
		} else {
			if _, found := doc.Attachments[name]; !found {
				writeError(writer, http.StatusNotFound, "not_found", "Document is missing attachment")

				return
			}

			delete(doc.Attachments, name)
		}

		f.nextRev(doc)
		writeJSON(writer, http.StatusCreated, couch.SaveResult{OK: true, ID: id, Rev: doc.Rev})
	}
}

func (f *fakeCouch) allDocs(writer http.ResponseWriter, request *http.Request, docs map[string]*fakeDoc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	includeDocs := request.URL.Query().Get("include_docs") == "true"

	ids := make([]string, 0, len(docs))

	for id, doc := range docs {
		if !doc.Deleted {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	rows := make([]couch.ViewRow, 0, len(ids))

	for _, id := range ids {
		row := couch.ViewRow{ID: id, Key: id, Value: map[string]any{"rev": docs[id].Rev}}
		if includeDocs {
			row.Doc = docs[id].render(id)
		}

		rows = append(rows, row)
	}

	rows = filterRows(request, rows)

	writeJSON(writer, http.StatusOK, couch.ViewResponse{TotalRows: len(ids), Rows: rows})
}

func (f *fakeCouch) bulkDocs(writer http.ResponseWriter, request *http.Request, docs map[string]*fakeDoc) {
	var body struct {
		Docs []map[string]any `json:"docs"`
	}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")

		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	results := make([]couch.BulkResult, 0, len(body.Docs))

	for _, entry := range body.Docs {
		id, _ := entry["_id"].(string)
		rev, _ := entry["_rev"].(string)
		deleted, _ := entry["_deleted"].(bool)

		doc, ok := docs[id]
		if !ok || doc.Deleted || doc.Rev != rev || !deleted {
			results = append(results, couch.BulkResult{ID: id, Error: "conflict", Reason: "Document update conflict."})

			continue
		}

		doc.Deleted = true
		f.nextRev(doc)
		results = append(results, couch.BulkResult{OK: true, ID: id, Rev: doc.Rev})
	}

	writeJSON(writer, http.StatusCreated, results)
}

func (f *fakeCouch) queryView(writer http.ResponseWriter, request *http.Request, docs map[string]*fakeDoc, designDoc, view string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	design, ok := docs["_design/"+designDoc]
	if !ok || design.Deleted {
		writeError(writer, http.StatusNotFound, "not_found", "missing")

		return
	}

	fn, ok := f.views[designDoc+"/"+view]
	if !ok {
		writeError(writer, http.StatusNotFound, "not_found", "missing_named_view")

		return
	}

	includeDocs := request.URL.Query().Get("include_docs") == "true"

	var rows []couch.ViewRow

	for id, doc := range docs {
		if doc.Deleted || strings.HasPrefix(id, "_design/") {
			continue
		}

		for _, row := range fn(doc.render(id)) {
			row.ID = id
			if includeDocs {
				row.Doc = doc.render(id)
			}

			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return fmt.Sprint(rows[i].Key) < fmt.Sprint(rows[j].Key)
	})

	filtered := filterRows(request, rows)
	if filtered == nil {
		filtered = []couch.ViewRow{}
	}

	writeJSON(writer, http.StatusOK, couch.ViewResponse{TotalRows: len(rows), Rows: filtered})
}

// filterRows applies the key, start_key and end_key bounds of string keys.
func filterRows(request *http.Request, rows []couch.ViewRow) []couch.ViewRow {
	values := request.URL.Query()

	bound := func(name string) (string, bool) {
		raw := values.Get(name)
		if raw == "" {
			return "", false
		}

		var key string
		if err := json.Unmarshal([]byte(raw), &key); err != nil {
			return "", false
		}

		return key, true
	}

	key, hasKey := bound("key")
	startKey, hasStart := bound("start_key")
	endKey, hasEnd := bound("end_key")

	var out []couch.ViewRow

	for _, row := range rows {
		rowKey := fmt.Sprint(row.Key)

		if hasKey && rowKey != key || hasStart && rowKey < startKey || hasEnd && rowKey > endKey {
			continue
		}

		out = append(out, row)
	}

	return out
}

func (d *fakeDoc) render(id string) couch.Document {
	doc := couch.Document{"_id": id, "_rev": d.Rev}
	for key, value := range d.Body {
		doc[key] = value
	}

	if len(d.Attachments) > 0 {
		stubs := make(map[string]any, len(d.Attachments))
		for name, attachment := range d.Attachments {
			stubs[name] = map[string]any{"content_type": attachment.ContentType, "length": len(attachment.Data), "stub": true}
		}

		doc["_attachments"] = stubs
	}

	return doc
}

func statusType(status int) string {
	switch status {
	case http.StatusConflict:
		return "conflict"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

func writeError(writer http.ResponseWriter, status int, errType, reason string) {
	writeJSON(writer, status, map[string]string{"error": errType, "reason": reason})
}
