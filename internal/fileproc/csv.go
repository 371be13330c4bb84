package fileproc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVProcessor parses .csv files. The first line names the columns and every
// following line becomes one Record keyed by those names.
//
// A line with fewer fields than the header yields a record without the trailing
// keys; fields beyond the header are dropped.
type CSVProcessor struct {
	source
}

// NewCSVProcessor returns a processor for the CSV file at path.
func NewCSVProcessor(path string) *CSVProcessor {
	return &CSVProcessor{source: source{path: path, ext: ".csv"}}
}

// Validate implements Processor.
func (p *CSVProcessor) Validate() error {
	return p.validate()
}

// Read implements Processor.
func (p *CSVProcessor) Read() error {
	return p.load()
}

// Parse implements Processor. The result is always a sequence.
func (p *CSVProcessor) Parse() (Content, error) {
	if err := p.loaded(); err != nil {
		return Content{}, err
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(p.data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return SequenceContent(p.path, nil), nil
	}
	if err != nil {
		return Content{}, fmt.Errorf("%w: %s header: %w", ErrParse, p.path, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Content{}, fmt.Errorf("%w: %s: %w", ErrParse, p.path, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rec := make(Record, len(columns))
		for i, value := range row {
			if i >= len(columns) {
				break
			}
			rec[columns[i]] = strings.TrimSpace(value)
		}
		records = append(records, rec)
	}
	return SequenceContent(p.path, records), nil
}
