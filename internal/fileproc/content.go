package fileproc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Shape identifies which arm of Content is populated.
type Shape int

const (
	ShapeSequence Shape = iota + 1
	ShapeSingle
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeSingle:
		return "single"
	default:
		return "unknown"
	}
}

// Record is one decoded object. Values are whatever the decoder produced:
// strings, json.Number, bool, nil, []any or map[string]any.
type Record map[string]any

// Content is the parsed form of a file: either a list of records or one record.
type Content struct {
	shape  Shape
	path   string
	list   []Record
	single Record
}

// SequenceContent wraps a list of records.
func SequenceContent(path string, records []Record) Content {
	if records == nil {
		records = []Record{}
	}
	return Content{shape: ShapeSequence, path: path, list: records}
}

// SingleContent wraps one record.
func SingleContent(path string, record Record) Content {
	if record == nil {
		record = Record{}
	}
	return Content{shape: ShapeSingle, path: path, single: record}
}

// Shape reports the populated arm.
func (c Content) Shape() Shape {
	return c.shape
}

// Path is the file the content was parsed from.
func (c Content) Path() string {
	return c.path
}

// Sequence returns the record list or ErrShapeMismatch.
func (c Content) Sequence() ([]Record, error) {
	if c.shape != ShapeSequence {
		return nil, fmt.Errorf("%w: %s holds a %s root, expected sequence", ErrShapeMismatch, c.path, c.shape)
	}
	return c.list, nil
}

// Single returns the lone record or ErrShapeMismatch.
func (c Content) Single() (Record, error) {
	if c.shape != ShapeSingle {
		return nil, fmt.Errorf("%w: %s holds a %s root, expected single record", ErrShapeMismatch, c.path, c.shape)
	}
	return c.single, nil
}

// Records resolves a list of records stored under key. A single root must hold
// key as an array of objects; a sequence root is returned as is.
func (c Content) Records(key string) ([]Record, error) {
	if c.shape == ShapeSequence {
		return c.list, nil
	}
	root, err := c.Single()
	if err != nil {
		return nil, err
	}
	raw, ok := root[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: %s is missing %q", ErrParse, c.path, key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s key %q is not a list", ErrParse, c.path, key)
	}
	out := make([]Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s[%d] is not an object", ErrParse, c.path, key, i)
		}
		out = append(out, Record(obj))
	}
	return out, nil
}

// String returns the value at key as a string. Numbers are formatted.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// Int returns the value at key as an int. Numeric strings are accepted so CSV
// records and JSON records resolve the same way.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Strings returns the value at key as a string slice. Non-string items are dropped.
func (r Record) Strings(key string) ([]string, bool) {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
