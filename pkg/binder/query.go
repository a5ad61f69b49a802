package binder

import (
	"net/http"
	"reflect"
)

// Query binds URL query parameters to fields tagged `query:"name"`.
// Repeated and comma separated values fill slice fields.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindFields(v, ErrFailedToParseQuery, func(sf reflect.StructField) []string {
			name, ok := fieldName(sf, "query", false)
			if !ok {
				return nil
			}
			return q[name]
		})
	}
}
