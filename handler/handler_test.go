package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/handler"
	"github.com/dmitrymomot/billingkit/pkg/binder"
	"github.com/dmitrymomot/billingkit/pkg/environment"
)

type greetRequest struct {
	UserID string `header:"X-User-ID"`
	Name   string `json:"name"`
}

var errDomainMissing = errors.New("thing missing")

func errorHandler(log *slog.Logger) handler.ErrorHandler[handler.Context] {
	return handler.NewErrorHandler(log, handler.ErrorHandlerConfig{
		Classify: func(err error) (handler.HTTPError, bool) {
			if errors.Is(err, errDomainMissing) {
				return handler.ErrNotFound, true
			}
			return handler.HTTPError{}, false
		},
	})
}

func wrap(h handler.HandlerFunc[handler.Context, greetRequest], decorators ...handler.Decorator[handler.Context, greetRequest]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, greetRequest](binder.Header(), binder.JSON()),
		handler.WithErrorHandler[handler.Context, greetRequest](errorHandler(slog.New(slog.DiscardHandler))),
		handler.WithDecorators(decorators...),
	)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap_BindsAndRendersJSON(t *testing.T) {
	t.Parallel()

	h := wrap(func(ctx handler.Context, req greetRequest) handler.Response {
		return handler.JSON(map[string]string{"user": req.UserID, "name": req.Name}, handler.WithJSONStatus(http.StatusCreated))
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"user": "u1", "name": "Ada"}, decode(t, rec).Data)
}

func TestWrap_SkipsNotApplicableBinder(t *testing.T) {
	t.Parallel()

	h := wrap(func(ctx handler.Context, req greetRequest) handler.Response {
		return handler.JSON(req.UserID)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "u2")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", decode(t, rec).Data)
}

func TestWrap_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		ctype    string
		respond  handler.Response
		wantCode int
		wantKey  string
	}{
		{name: "bad json", body: `{"name":`, ctype: "application/json", wantCode: http.StatusBadRequest, wantKey: "bad_request"},
		{name: "wrong media type", body: `name=x`, ctype: "application/x-www-form-urlencoded", wantCode: http.StatusUnsupportedMediaType, wantKey: "unsupported_media_type"},
		{name: "classified domain error", respond: handler.JSONError(fmt.Errorf("load: %w", errDomainMissing)), wantCode: http.StatusInternalServerError, wantKey: "internal_server_error"},
		{name: "http error", respond: handler.JSONError(handler.ErrBadGateway), wantCode: http.StatusBadGateway, wantKey: "bad_gateway"},
		{name: "nil response", wantCode: http.StatusInternalServerError, wantKey: "internal_server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := wrap(func(ctx handler.Context, req greetRequest) handler.Response {
				return tt.respond
			})
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
				req.Header.Set("Content-Type", tt.ctype)
			} else {
				req = httptest.NewRequest(http.MethodPost, "/", nil)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantKey, body.Error.Code)
		})
	}
}

func TestErrorHandler_ClassifyAndLog(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	eh := errorHandler(slog.New(slog.NewJSONHandler(&logs, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/x", nil)
	eh(handler.NewContext(rec, req), fmt.Errorf("find: %w", errDomainMissing))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not_found", body.Error.Code)
	assert.NotContains(t, rec.Body.String(), "thing missing", "internal messages stay out of the body")
	assert.Contains(t, logs.String(), `"level":"WARN"`)
	assert.Contains(t, logs.String(), "thing missing")
}

func TestErrorHandler_VerboseInDevelopment(t *testing.T) {
	t.Parallel()

	eh := handler.NewErrorHandler(slog.New(slog.DiscardHandler), handler.ErrorHandlerConfig{
		Verbose: environment.IsDevelopment,
	})
	boom := errors.New("store: connection refused")

	for env, wantMsg := range map[environment.Environment]string{
		environment.Development: "store: connection refused",
		environment.Production:  "Internal Server Error",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(environment.WithContext(req.Context(), env))
		eh(handler.NewContext(rec, req), boom)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, wantMsg, decode(t, rec).Error.Message, string(env))
	}
}

func TestErrorHandler_ValidationDetails(t *testing.T) {
	t.Parallel()

	verr := handler.NewValidationError()
	verr.Add("plan", "is required")
	verr.Add("cycle", "must be monthly or yearly")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	errorHandler(slog.New(slog.DiscardHandler))(handler.NewContext(rec, req), verr)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, []string{"is required"}, body.Error.Details["plan"])
	assert.Equal(t, "validation error: cycle: must be monthly or yearly, plan: is required", verr.Error())
}

func TestDecoratorsOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) handler.Decorator[handler.Context, greetRequest] {
		return func(next handler.HandlerFunc[handler.Context, greetRequest]) handler.HandlerFunc[handler.Context, greetRequest] {
			return func(ctx handler.Context, req greetRequest) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := wrap(func(ctx handler.Context, req greetRequest) handler.Response {
		order = append(order, "handler")
		return handler.JSON(nil, handler.WithJSONStatus(http.StatusAccepted))
	}, mark("outer"), mark("inner"))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestBlob(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, handler.Blob("image/png", []byte{0x89, 'P', 'N', 'G'}).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes())
}

func TestError_GoesThroughErrorHandler(t *testing.T) {
	t.Parallel()

	h := wrap(func(ctx handler.Context, req greetRequest) handler.Response {
		return handler.Error(fmt.Errorf("lookup %s: %w", req.UserID, errDomainMissing))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "u3")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode(t, rec).Error.Code)
}
