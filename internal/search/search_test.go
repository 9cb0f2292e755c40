package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

type recorded struct {
	method string
	path   string
	body   string
}

func newFakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*elasticsearch.Client, *[]recorded) {
	t.Helper()

	var mu sync.Mutex
	calls := []recorded{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, body: string(b)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client, &calls
}

func TestPostIndex_Index(t *testing.T) {
	t.Parallel()

	es, calls := newFakeES(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	idx := NewPostIndex(es, "posts")

	err := idx.Index(context.Background(), &models.Post{
		ID:        "p1",
		Text:      "hello world",
		Author:    "admin@x.com",
		Media:     &models.Media{URL: "/uploads/a.png", Type: models.MediaImage},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/posts/_doc/p1", call.path)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.body), &doc))
	assert.Equal(t, "hello world", doc["text"])
	assert.Equal(t, "image", doc["media_type"])
}

func TestPostIndex_Search(t *testing.T) {
	t.Parallel()

	es, calls := newFakeES(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_id":"p2"},{"_id":"p1"}]}}`))
	})
	idx := NewPostIndex(es, "posts")

	total, ids, err := idx.Search(context.Background(), "hello", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"p2", "p1"}, ids)

	call := (*calls)[0]
	assert.Equal(t, "/posts/_search", call.path)
	assert.True(t, strings.Contains(call.body, `"multi_match"`))
}

func TestPostIndex_DeleteMissingIsOK(t *testing.T) {
	t.Parallel()

	es, _ := newFakeES(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})
	require.NoError(t, NewPostIndex(es, "posts").Delete(context.Background(), "gone"))
}

func TestPostIndex_ErrorStatus(t *testing.T) {
	t.Parallel()

	es, _ := newFakeES(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})
	_, _, err := NewPostIndex(es, "posts").Search(context.Background(), "x", 0, 10)
	require.Error(t, err)
}

func TestPostIndex_EnsureIndexCreatesWhenMissing(t *testing.T) {
	t.Parallel()

	es, calls := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})
	require.NoError(t, NewPostIndex(es, "posts").EnsureIndex(context.Background()))

	require.Len(t, *calls, 2)
	assert.Equal(t, http.MethodPut, (*calls)[1].method)
	assert.Contains(t, (*calls)[1].body, `"mappings"`)
}
