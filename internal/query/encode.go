// Package query turns ordered parameters into the query strings the server
// expects.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedValue = errors.New("unsupported query parameter value")
)

// Encoder renders couch.Params as an application/x-www-form-urlencoded query
// string, in insertion order.
type Encoder struct {
	// Strict disables the trailing comma-joined pair appended after the
	// elements of a slice value.
	Strict bool
}

// Encode renders params. The result carries no leading "?".
func (e Encoder) Encode(params couch.Params) (string, error) {
	var pairs []string

	for _, param := range params {
		values, err := e.values(param.Value)
		if err != nil {
			return "", fmt.Errorf("encoding parameter %q: %w", param.Key, err)
		}

		for _, value := range values {
			pairs = append(pairs, url.QueryEscape(param.Key)+"="+url.QueryEscape(value))
		}
	}

	return strings.Join(pairs, "&"), nil
}

// Encode renders params with the default, wire-compatible encoder.
func Encode(params couch.Params) (string, error) {
	return Encoder{}.Encode(params)
}

// values returns the pairs produced by one parameter value.
func (e Encoder) values(value any) ([]string, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return []string{string(raw)}, nil
	}

	rv, ok := deref(reflect.ValueOf(value))
	if !ok {
		return nil, nil
	}

	if b, isBytes := rv.Interface().([]byte); isBytes {
		return []string{string(b)}, nil
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]string, 0, rv.Len()+1)

		for i := range rv.Len() {
			s, err := stringify(rv.Index(i))
			if err != nil {
				return nil, err
			}

			values = append(values, s)
		}

		if !e.Strict {
			joined, err := joinArray(rv)
			if err != nil {
				return nil, err
			}

			values = append(values, joined)
		}

		return values, nil
	case reflect.Map, reflect.Struct:
		text, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedValue, err)
		}

		return []string{string(text)}, nil
	default:
		s, err := stringify(rv)
		if err != nil {
			return nil, err
		}

		return []string{s}, nil
	}
}

// deref follows pointers and interfaces. It reports false for nil values.
func deref(rv reflect.Value) (reflect.Value, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}, false
		}

		rv = rv.Elem()
	}

	return rv, rv.IsValid()
}

// stringify converts a scalar to its text form. Structured values become JSON.
func stringify(rv reflect.Value) (string, error) {
	rv, ok := deref(rv)
	if !ok {
		return "null", nil
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Slice, reflect.Array:
		return joinArray(rv)
	case reflect.Map, reflect.Struct:
		text, err := json.Marshal(rv.Interface())
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnsupportedValue, err)
		}

		return string(text), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedValue, rv.Kind())
	}
}

// joinArray joins the elements with commas, nil elements rendering empty.
func joinArray(rv reflect.Value) (string, error) {
	parts := make([]string, rv.Len())

	for i := range rv.Len() {
		elem, ok := deref(rv.Index(i))
		if !ok {
			continue
		}

		s, err := stringify(elem)
		if err != nil {
			return "", err
		}

		parts[i] = s
	}

	return strings.Join(parts, ","), nil
}
