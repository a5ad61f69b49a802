package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path binds fields tagged `path:"name"` using extractor, typically chi.URLParam.
// Untagged fields are looked up by their lowercased name; `path:"-"` skips a field.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}
		return bindFields(v, ErrFailedToParsePath, func(sf reflect.StructField) []string {
			name, ok := fieldName(sf, "path", false)
			if !ok {
				return nil
			}
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		})
	}
}
