package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

type album struct {
	couch.Doc

	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// newAlbumsDB starts a fake server holding an empty "albums" database.
func newAlbumsDB(t *testing.T, configure ...func(*couch.Config)) (*fakeCouch, couch.Database) {
	t.Helper()

	fake, server := newFakeCouch(t)
	client := NewTestClient(t, server.URL, configure...)

	db, err := client.CreateDB(context.Background(), "albums")
	require.NoError(t, err)

	return fake, db
}

func TestSaveDoc_GeneratesID(t *testing.T) {
	t.Parallel()

	fake, db := newAlbumsDB(t)

	doc := couch.Document{"title": "Pathetique"}

	result, err := db.SaveDoc(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "generated-id", result.ID)
	assert.Equal(t, "generated-id", doc.ID())
	assert.Equal(t, result.Rev, doc.Rev())
	assert.Equal(t, 1, fake.countRequests(http.MethodPut, "/albums/generated-id"))
}

func TestSaveDoc_StructDocument(t *testing.T) {
	t.Parallel()

	_, db := newAlbumsDB(t)

	doc := &album{Doc: couch.Doc{ID: "hemispheres"}, Title: "Hemispheres", Artist: "Rush"}

	first, err := db.SaveDoc(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, first.Rev, doc.Rev)

	doc.Title = "Hemispheres (remastered)"

	second, err := db.SaveDoc(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, second.OK)
	assert.NotEqual(t, first.Rev, second.Rev)

	var loaded album

	found, err := db.LoadDocInto(context.Background(), "hemispheres", nil, &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Hemispheres (remastered)", loaded.Title)
	assert.Equal(t, second.Rev, loaded.Rev)
}

func TestSaveDoc_NilDocument(t *testing.T) {
	t.Parallel()

	var (
		nilMap    couch.Document
		nilStruct *album
	)

	tests := []struct {
		name string
		doc  couch.Identifiable
	}{
		{name: "nil interface", doc: nil},
		{name: "nil document map", doc: nilMap},
		{name: "nil struct pointer", doc: nilStruct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake, db := newAlbumsDB(t)

			result, err := db.SaveDoc(context.Background(), tt.doc)
			require.ErrorIs(t, err, couch.ErrDocumentRequired)
			assert.Nil(t, result)
			assert.Equal(t, 0, fake.countRequests(http.MethodPut, "/albums/generated-id"))
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestSaveDoc_ConflictResolution(t *testing.T) {
	t.Parallel()

	t.Run("stale revision is resolved", func(t *testing.T) {
		t.Parallel()

		random := &fixedRandom{id: "unused", jitter: 250}
		sleeper := &sleepRecorder{}

		fake, db := newAlbumsDB(t, func(config *couch.Config) {
			config.Random = random
			config.Sleep = sleeper.Sleep
		})

		original := couch.Document{"_id": "doc1", "title": "first"}
		first, err := db.SaveDoc(context.Background(), original)
		require.NoError(t, err)

		stale := couch.Document{"_id": "doc1", "_rev": first.Rev, "title": "stale"}

		original["title"] = "second"
		second, err := db.SaveDoc(context.Background(), original)
		require.NoError(t, err)

		result, err := db.SaveDoc(context.Background(), stale)
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Equal(t, "doc1", result.ID)
		assert.NotEqual(t, second.Rev, result.Rev)
		assert.Equal(t, result.Rev, stale.Rev())

		assert.Equal(t, []int{1000}, random.bounds)
		assert.Equal(t, []time.Duration{250 * time.Millisecond}, sleeper.delays)
		assert.Equal(t, 4, fake.countRequests(http.MethodPut, "/albums/doc1"))
		assert.Equal(t, 1, fake.countRequests(http.MethodGet, "/albums/doc1"))

		loaded, err := db.LoadDoc(context.Background(), "doc1", nil)
		require.NoError(t, err)
		assert.Equal(t, "stale", loaded["title"])
	})

	t.Run("disabled resolution surfaces the conflict", func(t *testing.T) {
		t.Parallel()

		sleeper := &sleepRecorder{}

		fake, db := newAlbumsDB(t, func(config *couch.Config) {
			config.Sleep = sleeper.Sleep
		})

		first, err := db.SaveDoc(context.Background(), couch.Document{"_id": "doc1"})
		require.NoError(t, err)

		_, err = db.SaveDoc(context.Background(), couch.Document{"_id": "doc1", "_rev": first.Rev})
		require.NoError(t, err)

		result, err := db.SaveDoc(context.Background(),
			couch.Document{"_id": "doc1", "_rev": first.Rev}, couch.WithoutConflictResolution())
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, couch.IsConflict(err))

		couchErr, ok := couch.AsError(err)
		require.True(t, ok)
		assert.Equal(t, couch.KindConflict, couchErr.Kind)
		assert.Equal(t, http.StatusConflict, couchErr.StatusCode)

		assert.Equal(t, 0, fake.countRequests(http.MethodGet, "/albums/doc1"))
		assert.Empty(t, sleeper.delays)
	})

	t.Run("second failure returns a not ok result", func(t *testing.T) {
		t.Parallel()

		logger := &MockLogger{}

		fake, db := newAlbumsDB(t, func(config *couch.Config) {
			config.Logger = logger
		})

		first, err := db.SaveDoc(context.Background(), couch.Document{"_id": "doc1"})
		require.NoError(t, err)

		fake.forceStatus("doc1", http.StatusConflict)

		doc := couch.Document{"_id": "doc1", "_rev": "1-stale"}

		result, err := db.SaveDoc(context.Background(), doc)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, "doc1", result.ID)
		assert.Equal(t, first.Rev, result.Rev)
		assert.Equal(t, first.Rev, doc.Rev())

		assert.Equal(t, []string{"couchdb: cross racing occurred"}, logger.messages("error"))
		assert.Equal(t, 3, fake.countRequests(http.MethodPut, "/albums/doc1"))
	})

	t.Run("concurrently deleted document is recreated", func(t *testing.T) {
		t.Parallel()

		_, db := newAlbumsDB(t)

		first, err := db.SaveDoc(context.Background(), couch.Document{"_id": "doc1"})
		require.NoError(t, err)

		_, err = db.DeleteDoc(context.Background(), "doc1", first.Rev)
		require.NoError(t, err)

		doc := couch.Document{"_id": "doc1", "_rev": first.Rev, "title": "back"}

		result, err := db.SaveDoc(context.Background(), doc)
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.Equal(t, result.Rev, doc.Rev())

		loaded, err := db.LoadDoc(context.Background(), "doc1", nil)
		require.NoError(t, err)
		assert.Equal(t, "back", loaded["title"])
	})

	t.Run("other failures are not retried", func(t *testing.T) {
		t.Parallel()

		fake, db := newAlbumsDB(t)
		fake.forceStatus("doc1", http.StatusForbidden)

		result, err := db.SaveDoc(context.Background(), couch.Document{"_id": "doc1"})
		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusForbidden, couch.StatusCode(err))
		assert.False(t, couch.IsConflict(err))
		assert.Equal(t, 1, fake.countRequests(http.MethodPut, "/albums/doc1"))
		assert.Equal(t, 0, fake.countRequests(http.MethodGet, "/albums/doc1"))
	})

	t.Run("re-read failure propagates", func(t *testing.T) {
		t.Parallel()

		var puts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.Method == http.MethodPut {
				puts.Add(1)
				writeError(writer, http.StatusConflict, "conflict", "Document update conflict.")

				return
			}

			writeError(writer, http.StatusInternalServerError, "unknown_error", "boom")
		}))
		defer server.Close()

		db := NewTestClient(t, server.URL).DB("albums")

		result, err := db.SaveDoc(context.Background(), couch.Document{"_id": "doc1", "_rev": "1-a"})
		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusInternalServerError, couch.StatusCode(err))
		assert.Equal(t, int32(1), puts.Load())
	})

	t.Run("cancelled wait stops the retry", func(t *testing.T) {
		t.Parallel()

		fake, db := newAlbumsDB(t, func(config *couch.Config) {
			config.Sleep = (&sleepRecorder{err: context.Canceled}).Sleep
		})

		fake.forceStatus("doc1", http.StatusConflict)

		_, err := db.SaveDoc(context.Background(), couch.Document{"_id": "doc1"})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, fake.countRequests(http.MethodGet, "/albums/doc1"))
	})
}

func TestSaveDoc_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	_, db := newAlbumsDB(t)

	first, err := db.SaveDoc(context.Background(), couch.Document{"_id": "counter"})
	require.NoError(t, err)

	const writers = 4

	results := make(chan *couch.SaveResult, writers)

	for i := range writers {
		go func() {
			result, saveErr := db.SaveDoc(context.Background(), couch.Document{"_id": "counter", "_rev": first.Rev, "writer": i})
			assert.NoError(t, saveErr)
			results <- result
		}()
	}

	for range writers {
		result := <-results
		require.NotNil(t, result)
		assert.Equal(t, "counter", result.ID)
	}
}
