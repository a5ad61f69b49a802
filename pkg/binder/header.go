package binder

import (
	"net/http"
	"reflect"
)

// Header binds request headers to fields tagged `header:"X-Name"`.
// Unlike the other binders, untagged fields are never bound.
func Header() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindFields(v, ErrFailedToParseHeader, func(sf reflect.StructField) []string {
			name, ok := fieldName(sf, "header", true)
			if !ok {
				return nil
			}
			return r.Header.Values(name)
		})
	}
}
