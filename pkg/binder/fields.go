package binder

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	durationType        = reflect.TypeFor[time.Duration]()
)

// lookupFunc returns the raw values for a struct field. A nil result leaves
// the field untouched.
type lookupFunc func(f reflect.StructField) []string

// bindFields walks the exported fields of the struct behind v and decodes
// whatever lookup returns into each of them.
func bindFields(v any, bindErr error, lookup lookupFunc) error {
	rv, err := structPtr(v, bindErr)
	if err != nil {
		return err
	}

	rt := rv.Type()
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		values := lookup(sf)
		if len(values) == 0 {
			continue
		}
		if err := decodeInto(rv.Field(i), values); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, sf.Name, err)
		}
	}
	return nil
}

// fieldName resolves the parameter name for sf under tag. Untagged fields
// fall back to the lowercased Go name unless strict is set.
func fieldName(sf reflect.StructField, tag string, strict bool) (string, bool) {
	name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
	switch name {
	case "-":
		return "", false
	case "":
		if strict {
			return "", false
		}
		return strings.ToLower(sf.Name), true
	}
	return name, true
}

func decodeInto(dst reflect.Value, values []string) error {
	t := dst.Type()

	if t.Kind() == reflect.Pointer {
		if dst.IsNil() {
			dst.Set(reflect.New(t.Elem()))
		}
		return decodeInto(dst.Elem(), values)
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return dst.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(values[0]))
	}

	if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		items := splitValues(values)
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := decodeInto(out.Index(i), []string{item}); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	}

	return decodeScalar(dst, values[0])
}

func decodeScalar(dst reflect.Value, raw string) error {
	t := dst.Type()
	if t == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch t.Kind() {
	case reflect.String:
		dst.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", raw)
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		dst.SetFloat(f)
	case reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Slice:
		dst.SetBytes([]byte(raw))
	default:
		return fmt.Errorf("unsupported kind %s", t.Kind())
	}
	return nil
}

// parseBool also accepts the checkbox spellings on/off and yes/no.
func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", raw)
	}
	return b, nil
}

// splitValues flattens repeated and comma separated values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}

func structPtr(v any, bindErr error) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: target must be a non-nil pointer", bindErr)
	}
	if rv = rv.Elem(); rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: target must be a pointer to struct", bindErr)
	}
	return rv, nil
}
