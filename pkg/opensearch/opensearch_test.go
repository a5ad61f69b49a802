package opensearch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/opensearch"
)

func TestNew_NoAddresses(t *testing.T) {
	t.Parallel()

	_, err := opensearch.New(context.Background(), opensearch.Config{})
	assert.ErrorIs(t, err, opensearch.ErrNoAddresses)
	assert.ErrorIs(t, err, opensearch.ErrConnectionFailed)
}

func TestNew_Healthcheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
	}))
	t.Cleanup(healthy.Close)

	client, err := opensearch.New(context.Background(), opensearch.Config{Addresses: []string{healthy.URL}, DisableRetry: true})
	require.NoError(t, err)
	assert.NotNil(t, client)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(broken.Close)

	_, err = opensearch.New(context.Background(), opensearch.Config{Addresses: []string{broken.URL}, DisableRetry: true})
	assert.ErrorIs(t, err, opensearch.ErrHealthcheckFailed)
}

func TestNew_MissingCACert(t *testing.T) {
	t.Parallel()

	_, err := opensearch.New(context.Background(), opensearch.Config{
		Addresses:  []string{"https://127.0.0.1:9200"},
		CACertPath: t.TempDir() + "/missing.pem",
	})
	assert.ErrorIs(t, err, opensearch.ErrConnectionFailed)
}
