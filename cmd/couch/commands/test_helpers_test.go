package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

// testServer answers the subset of the CouchDB API the commands use.
type testServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	server := &testServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"couchdb":  "Welcome",
			"version":  "3.3.3",
			"uuid":     "0c3b4a1e",
			"features": []string{"access-ready", "partitioned"},
			"vendor":   map[string]any{"name": "The Apache Software Foundation"},
		})
	})
	mux.HandleFunc("GET /_all_dbs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []string{"albums", "people"})
	})
	mux.HandleFunc("PUT /{db}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /{db}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("db") != "albums" {
			writeNotFound(w)

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"db_name": "albums", "doc_count": 2})
	})
	mux.HandleFunc("DELETE /{db}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("db") != "albums" {
			writeNotFound(w)

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /{db}/_compact", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /{db}/_all_docs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"total_rows": 2,
			"offset":     0,
			"rows": []map[string]any{
				{"id": "a", "key": "a", "value": map[string]any{"rev": "1-a"}},
				{"id": "b", "key": "b", "value": map[string]any{"rev": "1-b"}},
			},
		})
	})
	mux.HandleFunc("POST /{db}/_bulk_docs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, []map[string]any{
			{"ok": true, "id": "a", "rev": "2-a"},
			{"id": "b", "error": "conflict", "reason": "Document update conflict."},
		})
	})
	mux.HandleFunc("GET /{db}/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "known" {
			writeNotFound(w)

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"_id": "known", "_rev": "1-abc", "title": "Blue Train"})
	})
	mux.HandleFunc("PUT /{db}/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": r.PathValue("id"), "rev": "1-abc"})
	})
	mux.HandleFunc("DELETE /{db}/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": r.PathValue("id"), "rev": "2-def"})
	})
	mux.HandleFunc("GET /{db}/_design/{ddoc}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"_id":      "_design/" + r.PathValue("ddoc"),
			"_rev":     "1-abc",
			"language": "javascript",
			"views":    map[string]any{"by_title": map[string]any{"map": "function(doc) { emit(doc.title, 1); }"}},
		})
	})
	mux.HandleFunc("PUT /{db}/_design/{ddoc}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": "_design/" + r.PathValue("ddoc"), "rev": "1-abc"})
	})
	mux.HandleFunc("GET /{db}/_design/{ddoc}/_view/{view}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"total_rows": 1,
			"offset":     0,
			"rows":       []map[string]any{{"id": "known", "key": "Blue Train", "value": 1}},
		})
	})
	mux.HandleFunc("GET /{db}/{id}/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "liner notes")
	})
	mux.HandleFunc("PUT /{db}/{id}/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": r.PathValue("id"), "rev": "2-def"})
	})
	mux.HandleFunc("DELETE /{db}/{id}/{name}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": r.PathValue("id"), "rev": "3-ghi"})
	})

	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		server.mu.Lock()
		server.requests = append(server.requests, recordedRequest{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(body),
		})
		server.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	return server
}

func (s *testServer) lastRequest() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return recordedRequest{}
	}

	return s.requests[len(s.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found", "reason": "missing"})
}

// executeCommand runs the couch command tree with args and returns its
// stdout and stderr. viper state is global, so callers must not run in
// parallel.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	var stdout, stderr bytes.Buffer

	root := NewRootCommand("1.2.3", "abc123", "2026-10-01")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))

	configFile := filepath.Join(t.TempDir(), "config.yml")
	root.SetArgs(append([]string{"--config", configFile}, args...))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}
