package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewFormats(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger.New(logger.WithOutput(&buf)).Info("order created", logger.OrderID("ord_1"))

		entry := decode(t, &buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "order created", entry["msg"])
		assert.Equal(t, "ord_1", entry["order_id"])
	})

	t.Run("text formatter", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger.New(logger.WithOutput(&buf), logger.WithTextFormatter()).Info("sweep finished", logger.Job("billing.sweep"))

		assert.Contains(t, buf.String(), "msg=\"sweep finished\"")
		assert.Contains(t, buf.String(), "job=billing.sweep")
	})

	t.Run("last formatter wins", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger.New(logger.WithOutput(&buf), logger.WithTextFormatter(), logger.WithJSONFormatter()).Info("x")

		assert.Equal(t, "x", decode(t, &buf)["msg"])
	})

	t.Run("unknown format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			logger.New(logger.WithFormat(logger.Format("xml")))
		})
	})
}

func TestNewStaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithAttr(logger.Component("sweeper")))
	log.Warn("lapsed", logger.PlanID("pro"))

	entry := decode(t, &buf)
	assert.Equal(t, "sweeper", entry["component"])
	assert.Equal(t, "pro", entry["plan_id"])
}

func TestContextHandler(t *testing.T) {
	t.Parallel()

	fromCtx := func(ctx context.Context) (slog.Attr, bool) {
		id, ok := ctx.Value(ctxKey{}).(string)
		return logger.RequestID(id), ok
	}

	t.Run("adds attributes from the call context", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithContextExtractors(fromCtx))

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-7")
		log.InfoContext(ctx, "payment applied")

		assert.Equal(t, "req-7", decode(t, &buf)["request_id"])
	})

	t.Run("skips missing values", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithContextExtractors(fromCtx))

		log.InfoContext(context.Background(), "payment applied")

		assert.NotContains(t, decode(t, &buf), "request_id")
	})

	t.Run("survives With and WithGroup", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithContextExtractors(fromCtx)).
			With(logger.Component("api")).
			WithGroup("billing")

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-8")
		log.InfoContext(ctx, "verify")

		entry := decode(t, &buf)
		assert.Equal(t, "api", entry["component"])
		group, ok := entry["billing"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "req-8", group["request_id"])
	})

	t.Run("no extractors returns the inner handler", func(t *testing.T) {
		t.Parallel()
		inner := slog.DiscardHandler
		assert.Equal(t, inner, logger.NewContextHandler(inner, nil, nil))
	})
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger.SetAsDefault(logger.New(logger.WithOutput(&buf)))
	slog.Info("default")

	assert.Equal(t, "default", decode(t, &buf)["msg"])
}

func TestRedactsSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger.New(logger.WithOutput(&buf)).Warn("webhook rejected",
		slog.String("signature", "t=1,v1=abc"),
		slog.String("Client_Secret", "cf-secret"),
		logger.OrderID("ord_9"),
	)

	entry := decode(t, &buf)
	assert.Equal(t, "[redacted]", entry["signature"])
	assert.Equal(t, "[redacted]", entry["Client_Secret"])
	assert.Equal(t, "ord_9", entry["order_id"])
	assert.NotContains(t, buf.String(), "cf-secret")
}
