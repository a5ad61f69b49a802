package binder

import "errors"

// Binders wrap these with the offending field so the error handler can map
// every parse failure to 400 and media type problems to 415.
var (
	ErrUnsupportedMediaType = errors.New("binder: unsupported media type")
	ErrMissingContentType   = errors.New("binder: missing content type")
	ErrFailedToParseJSON    = errors.New("binder: malformed JSON body")
	ErrFailedToParseQuery   = errors.New("binder: bad query parameter")
	ErrFailedToParsePath    = errors.New("binder: bad path parameter")
	ErrFailedToParseHeader  = errors.New("binder: bad header")

	// ErrBinderNotApplicable makes handler.Wrap skip the binder for this request.
	ErrBinderNotApplicable = errors.New("binder: not applicable")
)
