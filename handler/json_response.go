package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"
)

// JSONResponse is the envelope every JSON reply uses. Exactly one of Data
// and Error is set.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail is the error member of the envelope. Details carries per-field
// messages for validation failures.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithJSONMeta merges meta into the envelope's meta member.
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		if r.envelope.Meta == nil {
			r.envelope.Meta = make(map[string]any, len(meta))
		}
		maps.Copy(r.envelope.Meta, meta)
	}
}

type jsonResponse struct {
	status   int
	envelope JSONResponse
}

func (j *jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.envelope)
}

// JSON answers 200 with v as data.
func JSON(v any, opts ...JSONOption) Response {
	return newJSON(http.StatusOK, JSONResponse{Data: v}, opts)
}

// JSONError answers with an error envelope. err is either a prepared
// *ErrorDetail, used as is with status 500 unless overridden, or an error
// classified with the built-in rules. An error's own text never reaches the
// body; the message is the status text.
func JSONError(err any, opts ...JSONOption) Response {
	switch e := err.(type) {
	case *ErrorDetail:
		return newJSON(http.StatusInternalServerError, JSONResponse{Error: e}, opts)
	case error:
		he := classifyError(ErrorHandlerConfig{}, e)
		detail := &ErrorDetail{Code: he.Key, Message: http.StatusText(he.Code)}
		if verr, ok := asValidation(e); ok {
			detail = validationDetail(verr)
		}
		return newJSON(he.Code, JSONResponse{Error: detail}, opts)
	}
	return newJSON(http.StatusInternalServerError, JSONResponse{Error: &ErrorDetail{
		Code:    ErrInternalServerError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}}, opts)
}

func newJSON(status int, env JSONResponse, opts []JSONOption) *jsonResponse {
	r := &jsonResponse{status: status, envelope: env}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func asValidation(err error) (ValidationError, bool) {
	var verr ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

func validationDetail(verr ValidationError) *ErrorDetail {
	detail := &ErrorDetail{Code: "validation_error", Message: verr.Error()}
	if len(verr) > 0 {
		detail.Details = maps.Clone(map[string][]string(verr))
	}
	return detail
}
