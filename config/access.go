package config

import (
	"fmt"
	"reflect"
)

// GetSection returns the mapping at key. It fails with Missing when nothing
// is stored there or the value is not a mapping.
func GetSection(n *Node, key string) (*Node, error) {
	section, ok := n.Section(key)
	if !ok {
		return nil, newError(n, key, Missing, "missing section", nil)
	}
	return section, nil
}

// ParseValue reads the raw scalar at key and converts it with parse. Parsers
// may enforce semantic constraints by returning an error; that error, or a
// nil/empty result, becomes a ParseFailure carrying the rejected text.
func ParseValue[T any](n *Node, key string, parse func(string) (T, error)) (T, error) {
	var zero T
	raw, ok := n.String(key)
	if !ok {
		return zero, newError(n, key, Missing, "missing value", nil)
	}

	v, err := parse(raw)
	if err == nil && isEmpty(v) {
		err = ErrNilResult
	}
	if err != nil {
		return zero, newError(n, key, ParseFailure,
			fmt.Sprintf("parse error: invalid value: '%s'", raw), err)
	}
	return v, nil
}

// ComputeValue hands the node itself to get, for extractions that need more
// than one scalar. Any error or nil/empty result becomes a ComputeFailure.
func ComputeValue[T any](n *Node, key string, get func(*Node, string) (T, error)) (T, error) {
	var zero T
	v, err := get(n, key)
	if err == nil && isEmpty(v) {
		err = ErrNilResult
	}
	if err != nil {
		return zero, newError(n, key, ComputeFailure, "compute error: invalid value", err)
	}
	return v, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
