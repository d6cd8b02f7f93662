package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

// Record is a flat string map handed to scripts as a Risor map.
type Record map[string]string

// RecordList converts records to a Risor list of maps.
func RecordList(records []Record) *object.List {
	items := make([]object.Object, len(records))
	for i, rec := range records {
		m := make(map[string]object.Object, len(rec))
		for k, v := range rec {
			m[k] = object.NewString(v)
		}
		items[i] = object.NewMap(m)
	}
	return object.NewList(items)
}

// ToStrings converts a script result to strings. A string becomes a single
// element, a list must hold only strings, and nil becomes an empty slice.
func ToStrings(obj object.Object) ([]string, error) {
	switch v := obj.(type) {
	case nil:
		return nil, nil
	case *object.NilType:
		return nil, nil
	case *object.String:
		return []string{v.Value()}, nil
	case *object.List:
		out := make([]string, 0, len(v.Value()))
		for i, item := range v.Value() {
			s, err := toString(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected string or list, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
