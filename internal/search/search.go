// Package search keeps an Elasticsearch index of posts for full-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/magister_portal/internal/models"
)

type Options struct {
	URL      string
	Username string
	Password string
	Index    string
}

func NewClient(ctx context.Context, opts Options) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{opts.URL},
		Username:  opts.Username,
		Password:  opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("es info", res.StatusCode, res.Body)
	}
	return client, nil
}

type document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	MediaType string    `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "title":      {"type": "text"},
      "text":       {"type": "text"},
      "author":     {"type": "keyword"},
      "media_type": {"type": "keyword"},
      "created_at": {"type": "date"}
    }
  }
}`

type PostIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewPostIndex(es *elasticsearch.Client, index string) *PostIndex {
	if index == "" {
		index = "posts"
	}
	return &PostIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (p *PostIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.es.Indices.Exists([]string{p.index}, p.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = p.es.Indices.Create(p.index,
		p.es.Indices.Create.WithContext(ctx),
		p.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.StatusCode, res.Body)
	}
	return nil
}

func (p *PostIndex) Index(ctx context.Context, post *models.Post) error {
	doc := document{
		ID:        post.ID,
		Title:     post.Title,
		Text:      post.Text,
		Author:    post.Author,
		CreatedAt: post.CreatedAt,
	}
	if post.Media != nil {
		doc.MediaType = post.Media.Type
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode post: %w", err)
	}

	res, err := p.es.Index(p.index, &buf,
		p.es.Index.WithContext(ctx),
		p.es.Index.WithDocumentID(post.ID),
	)
	if err != nil {
		return fmt.Errorf("index post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index post", res.StatusCode, res.Body)
	}
	return nil
}

// Delete removes a post from the index. A missing document is not an error.
func (p *PostIndex) Delete(ctx context.Context, id string) error {
	res, err := p.es.Delete(p.index, id, p.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete post", res.StatusCode, res.Body)
	}
	return nil
}

// Search returns the total hit count and the ids of the matching posts in
// relevance order.
func (p *PostIndex) Search(ctx context.Context, query string, from, size int) (int64, []string, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "text"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": []string{"id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := p.es.Search(
		p.es.Search.WithContext(ctx),
		p.es.Search.WithIndex(p.index),
		p.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		ids[i] = hit.ID
	}
	return r.Hits.Total.Value, ids, nil
}

func responseError(op string, status int, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, 512))
	return errors.New(op + ": status " + http.StatusText(status) + ": " + string(b))
}
