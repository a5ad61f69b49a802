package requestid_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/requestid"
)

func serve(t *testing.T, header string) (string, string) {
	t.Helper()
	var inCtx string
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inCtx = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return inCtx, rec.Header().Get(requestid.Header)
}

func TestMiddleware_ReusesValidID(t *testing.T) {
	t.Parallel()

	inCtx, echoed := serve(t, "req_abc-123")
	assert.Equal(t, "req_abc-123", inCtx)
	assert.Equal(t, "req_abc-123", echoed)
}

func TestMiddleware_ReplacesInvalidID(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "has space", "semi;colon", strings.Repeat("a", 129)} {
		inCtx, echoed := serve(t, header)
		assert.Equal(t, inCtx, echoed)
		parsed, err := uuid.Parse(inCtx)
		require.NoError(t, err, "header %q", header)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	}
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	ctx, id := requestid.Ensure(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, id, requestid.FromContext(ctx))

	same, again := requestid.Ensure(ctx)
	assert.Equal(t, id, again)
	assert.Equal(t, ctx, same)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-1"), "hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	log.InfoContext(context.Background(), "bare")
	assert.NotContains(t, buf.String(), "request_id")
}
