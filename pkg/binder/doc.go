// Package binder fills request structs from parts of an HTTP request.
//
// Each binder has the signature func(*http.Request, any) error and handles one
// source, selected by struct tag:
//
//	type VerifyRequest struct {
//		UserID  string `header:"X-User-ID"`
//		OrderID string `path:"orderID"`
//		Limit   int    `query:"limit"`
//	}
//
// JSON decodes the body strictly. A binder returns ErrBinderNotApplicable when
// the request carries nothing for it; handler.Wrap skips it in that case.
// Every other failure wraps one of the ErrFailedToParse* sentinels.
package binder
