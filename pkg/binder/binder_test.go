package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/binder"
)

type orderRequest struct {
	UserID  string `header:"X-User-ID" json:"-"`
	OrderID string `path:"orderID" json:"-"`
	Plan    string `json:"plan" path:"-"`
	Cycle   string `json:"cycle" path:"-"`
	Limit   int    `query:"limit" json:"-" path:"-"`
}

func TestJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     error
		want        orderRequest
	}{
		{name: "valid", contentType: "application/json; charset=utf-8", body: `{"plan":"professional","cycle":"monthly"}`,
			want: orderRequest{Plan: "professional", Cycle: "monthly"}},
		{name: "unknown field", contentType: "application/json", body: `{"plan":"x","price":1}`, wantErr: binder.ErrFailedToParseJSON},
		{name: "trailing data", contentType: "application/json", body: `{"plan":"x"}{"plan":"y"}`, wantErr: binder.ErrFailedToParseJSON},
		{name: "empty body", contentType: "application/json", body: ``, wantErr: binder.ErrFailedToParseJSON},
		{name: "wrong media type", contentType: "text/plain", body: `{}`, wantErr: binder.ErrUnsupportedMediaType},
		{name: "body without content type", body: `{}`, wantErr: binder.ErrMissingContentType},
		{name: "no body at all", wantErr: binder.ErrBinderNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			if tt.body == "" {
				req = httptest.NewRequest(http.MethodPost, "/orders", http.NoBody)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			var got orderRequest
			err := binder.JSON()(req, &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSON_TooLarge(t *testing.T) {
	t.Parallel()

	body := `{"plan":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	var got orderRequest
	assert.ErrorIs(t, binder.JSON()(req, &got), binder.ErrFailedToParseJSON)
}

func TestPath(t *testing.T) {
	t.Parallel()

	params := map[string]string{"orderID": "ord_1"}
	extract := func(_ *http.Request, name string) string { return params[name] }
	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/verify", nil)

	var got orderRequest
	require.NoError(t, binder.Path(extract)(req, &got))
	assert.Equal(t, "ord_1", got.OrderID)

	assert.ErrorIs(t, binder.Path(nil)(req, &got), binder.ErrFailedToParsePath)
	assert.ErrorIs(t, binder.Path(extract)(req, got), binder.ErrFailedToParsePath)
}

func TestHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/subscription", nil)
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("Plan", "enterprise")

	var got orderRequest
	require.NoError(t, binder.Header()(req, &got))
	assert.Equal(t, "user-1", got.UserID)
	assert.Empty(t, got.Plan, "untagged fields are not bound from headers")

	var n struct {
		Attempt int `header:"X-Attempt"`
	}
	req.Header.Set("X-Attempt", "many")
	assert.ErrorIs(t, binder.Header()(req, &n), binder.ErrFailedToParseHeader)
}

func TestQuery(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/journal?limit=25", nil)
	var got orderRequest
	require.NoError(t, binder.Query()(req, &got))
	assert.Equal(t, 25, got.Limit)

	req = httptest.NewRequest(http.MethodGet, "/journal?limit=lots", nil)
	assert.ErrorIs(t, binder.Query()(req, &got), binder.ErrFailedToParseQuery)
}

func TestQueryKinds(t *testing.T) {
	t.Parallel()

	type filter struct {
		Plans   []string      `query:"plan"`
		Since   time.Time     `query:"since"`
		Window  time.Duration `query:"window"`
		Active  *bool         `query:"active"`
		Cents   uint32        `query:"cents"`
		Skipped string        `query:"-"`
	}

	req := httptest.NewRequest(http.MethodGet,
		"/journal?plan=pro,basic&plan=team&since=2026-01-02T03:04:05Z&window=36h&active=yes&cents=499&Skipped=x", nil)

	var got filter
	require.NoError(t, binder.Query()(req, &got))
	assert.Equal(t, []string{"pro", "basic", "team"}, got.Plans)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), got.Since)
	assert.Equal(t, 36*time.Hour, got.Window)
	require.NotNil(t, got.Active)
	assert.True(t, *got.Active)
	assert.EqualValues(t, 499, got.Cents)
	assert.Empty(t, got.Skipped)

	req = httptest.NewRequest(http.MethodGet, "/journal?window=soon", nil)
	assert.ErrorIs(t, binder.Query()(req, &got), binder.ErrFailedToParseQuery)
}
