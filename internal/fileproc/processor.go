package fileproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Processor is one file kind's implementation of the validate/read/parse pipeline.
type Processor interface {
	// Validate checks that the path is a file this processor understands.
	Validate() error
	// Read loads the raw file into memory.
	Read() error
	// Parse decodes the data captured by Read.
	Parse() (Content, error)
}

// Process runs p's pipeline in order and stops at the first failing step.
func Process(p Processor) (Content, error) {
	if p == nil {
		return Content{}, fmt.Errorf("fileproc: nil processor")
	}
	if err := p.Validate(); err != nil {
		return Content{}, err
	}
	if err := p.Read(); err != nil {
		return Content{}, err
	}
	return p.Parse()
}

// Open picks a processor from the path's extension.
func Open(path string) (Processor, error) {
	switch extension(path) {
	case ".json":
		return NewJSONProcessor(path), nil
	case ".csv":
		return NewCSVProcessor(path), nil
	default:
		return nil, fmt.Errorf("%w: %s has no supported extension", ErrInvalidFormat, path)
	}
}

// Load opens path with the processor matching its extension and processes it.
func Load(path string) (Content, error) {
	p, err := Open(path)
	if err != nil {
		return Content{}, err
	}
	return Process(p)
}

// source holds the state shared by the file-backed processors.
type source struct {
	path string
	ext  string
	data []byte
	read bool
}

func (s *source) validate() error {
	if strings.TrimSpace(s.path) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidFormat)
	}
	if got := extension(s.path); got != s.ext {
		return fmt.Errorf("%w: %s is not a %s file", ErrInvalidFormat, s.path, s.ext)
	}
	return nil
}

func (s *source) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrIO, s.path, err)
	}
	s.data = data
	s.read = true
	return nil
}

func (s *source) loaded() error {
	if !s.read {
		return fmt.Errorf("fileproc: parse called before read for %s", s.path)
	}
	return nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
