// Package searchjournal writes billing journal entries to an OpenSearch index
// and reads an account's history back.
package searchjournal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/tidwall/gjson"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

var (
	ErrIndexFailed  = errors.New("journal index request failed")
	ErrSearchFailed = errors.New("journal search request failed")
)

const (
	defaultTimeout  = 5 * time.Second
	defaultPageSize = 50
	maxPageSize     = 500
)

const mapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "type":        {"type": "keyword"},
      "source":      {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "order_id":    {"type": "keyword"},
      "plan":        {"type": "keyword"},
      "status":      {"type": "keyword"},
      "amount":      {"type": "long"},
      "currency":    {"type": "keyword"},
      "reason":      {"type": "text"},
      "occurred_at": {"type": "date"}
    }
  }
}`

// Journal implements billing.Journal.
type Journal struct {
	client  *opensearch.Client
	index   string
	timeout time.Duration
}

var _ billing.Journal = (*Journal)(nil)

type Option func(*Journal)

// WithTimeout bounds each request. Recording happens on the billing write path.
func WithTimeout(d time.Duration) Option {
	return func(j *Journal) {
		if d > 0 {
			j.timeout = d
		}
	}
}

func New(client *opensearch.Client, index string, opts ...Option) *Journal {
	j := &Journal{client: client, index: index, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (j *Journal) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	res, err := opensearchapi.IndicesCreateRequest{
		Index: j.index,
		Body:  strings.NewReader(mapping),
	}.Do(ctx, j.client)
	if err != nil {
		return errors.Join(ErrIndexFailed, err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.IsError() {
		if res.StatusCode == http.StatusBadRequest &&
			gjson.GetBytes(body, "error.type").String() == "resource_already_exists_exception" {
			return nil
		}
		return errors.Join(ErrIndexFailed, responseError(res.StatusCode, body))
	}
	return nil
}

// Record indexes entry under its ID, so a retried write does not duplicate it.
func (j *Journal) Record(ctx context.Context, entry billing.JournalEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return errors.Join(ErrIndexFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	res, err := opensearchapi.IndexRequest{
		Index:      j.index,
		DocumentID: entry.ID,
		Body:       bytes.NewReader(payload),
	}.Do(ctx, j.client)
	if err != nil {
		return errors.Join(ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return errors.Join(ErrIndexFailed, responseError(res.StatusCode, body))
	}
	return nil
}

// History returns the newest entries for userID, newest first.
func (j *Journal) History(ctx context.Context, userID string, size int) ([]billing.JournalEntry, error) {
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	query, err := json.Marshal(map[string]any{
		"size":  size,
		"query": map[string]any{"term": map[string]any{"user_id": userID}},
		"sort":  []any{map[string]any{"occurred_at": map[string]string{"order": "desc"}}},
	})
	if err != nil {
		return nil, errors.Join(ErrSearchFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	res, err := opensearchapi.SearchRequest{
		Index: []string{j.index},
		Body:  bytes.NewReader(query),
	}.Do(ctx, j.client)
	if err != nil {
		return nil, errors.Join(ErrSearchFailed, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Join(ErrSearchFailed, err)
	}
	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return []billing.JournalEntry{}, nil
		}
		return nil, errors.Join(ErrSearchFailed, responseError(res.StatusCode, body))
	}

	hits := gjson.GetBytes(body, "hits.hits.#._source").Array()
	out := make([]billing.JournalEntry, 0, len(hits))
	for _, h := range hits {
		var e billing.JournalEntry
		if err := json.Unmarshal([]byte(h.Raw), &e); err != nil {
			return nil, errors.Join(ErrSearchFailed, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func responseError(status int, body []byte) error {
	if reason := gjson.GetBytes(body, "error.reason").String(); reason != "" {
		return fmt.Errorf("status %d: %s", status, reason)
	}
	return fmt.Errorf("status %d", status)
}
