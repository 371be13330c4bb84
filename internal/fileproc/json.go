package fileproc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// JSONProcessor parses .json files whose root is an array of objects or a single object.
type JSONProcessor struct {
	source
}

// NewJSONProcessor returns a processor for the JSON file at path.
func NewJSONProcessor(path string) *JSONProcessor {
	return &JSONProcessor{source: source{path: path, ext: ".json"}}
}

// Validate implements Processor.
func (p *JSONProcessor) Validate() error {
	return p.validate()
}

// Read implements Processor.
func (p *JSONProcessor) Read() error {
	return p.load()
}

// Parse inspects the first token of the document to pick the Content arm and
// decodes the document in the same pass.
func (p *JSONProcessor) Parse() (Content, error) {
	if err := p.loaded(); err != nil {
		return Content{}, err
	}
	body := bytes.TrimPrefix(p.data, utf8BOM)
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return Content{}, fmt.Errorf("%w: %s is empty", ErrParse, p.path)
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	switch trimmed[0] {
	case '[':
		var items []any
		if err := dec.Decode(&items); err != nil {
			return Content{}, fmt.Errorf("%w: %s: %w", ErrParse, p.path, err)
		}
		if err := expectEOF(dec); err != nil {
			return Content{}, fmt.Errorf("%w: %s: %w", ErrParse, p.path, err)
		}
		records := make([]Record, 0, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				return Content{}, fmt.Errorf("%w: %s element %d is not an object", ErrParse, p.path, i)
			}
			records = append(records, Record(obj))
		}
		return SequenceContent(p.path, records), nil
	case '{':
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return Content{}, fmt.Errorf("%w: %s: %w", ErrParse, p.path, err)
		}
		if err := expectEOF(dec); err != nil {
			return Content{}, fmt.Errorf("%w: %s: %w", ErrParse, p.path, err)
		}
		return SingleContent(p.path, Record(obj)), nil
	default:
		return Content{}, fmt.Errorf("%w: %s root must be an array or object", ErrParse, p.path)
	}
}

func expectEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after root value")
	}
	return nil
}

// LoadJSON processes the JSON file at path.
func LoadJSON(path string) (Content, error) {
	return Process(NewJSONProcessor(path))
}

// WriteJSON encodes v with two-space indentation and replaces path with it.
// The data is written to a temporary sibling first and renamed into place, so
// readers see either the previous file or the complete new one.
func WriteJSON(path string, v any) error {
	if extension(path) != ".json" {
		return fmt.Errorf("%w: %s is not a .json file", ErrInvalidFormat, path)
	}
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("fileproc: encode %s: %w", path, err)
	}
	encoded = append(encoded, '\n')
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: ensure dir %s: %w", ErrIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", ErrIO, path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %w", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %w", ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: replace %s: %w", ErrIO, path, err)
	}
	return nil
}
