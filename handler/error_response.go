package handler

import "net/http"

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error {
	return e.err
}

// Error hands err to the ErrorHandler configured on Wrap, so domain errors
// are classified in one place.
func Error(err error) Response {
	return errorResponse{err: err}
}
