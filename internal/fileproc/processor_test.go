package fileproc

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	calls     []string
	failOn    string
	parseWith Content
}

func (p *recordingProcessor) step(name string) error {
	p.calls = append(p.calls, name)
	if p.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (p *recordingProcessor) Validate() error { return p.step("validate") }
func (p *recordingProcessor) Read() error     { return p.step("read") }
func (p *recordingProcessor) Parse() (Content, error) {
	if err := p.step("parse"); err != nil {
		return Content{}, err
	}
	return p.parseWith, nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestProcessRunsStepsInOrder(t *testing.T) {
	p := &recordingProcessor{parseWith: SingleContent("x.json", Record{"a": "b"})}
	content, err := Process(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "read", "parse"}, p.calls)
	assert.Equal(t, ShapeSingle, content.Shape())
}

func TestProcessStopsAtFirstFailure(t *testing.T) {
	for _, step := range []string{"validate", "read", "parse"} {
		t.Run(step, func(t *testing.T) {
			p := &recordingProcessor{failOn: step}
			_, err := Process(p)
			require.Error(t, err)
			assert.Equal(t, step, p.calls[len(p.calls)-1])
		})
	}
}

func TestValidateRejectsWrongExtension(t *testing.T) {
	_, err := Process(NewJSONProcessor(writeFile(t, "data.csv", "a,b\n")))
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Process(NewCSVProcessor(writeFile(t, "data.json", "[]")))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateAcceptsUpperCaseExtension(t *testing.T) {
	content, err := Process(NewJSONProcessor(writeFile(t, "DATA.JSON", `[{"a":1}]`)))
	require.NoError(t, err)
	assert.Equal(t, ShapeSequence, content.Shape())
}

func TestReadMissingFileIsIOError(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrIO)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestParseBeforeReadFails(t *testing.T) {
	_, err := NewJSONProcessor("x.json").Parse()
	require.Error(t, err)
}

func TestOpenSelectsProcessorByExtension(t *testing.T) {
	p, err := Open("students.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVProcessor{}, p)

	p, err = Open("students.json")
	require.NoError(t, err)
	assert.IsType(t, &JSONProcessor{}, p)

	_, err = Open("students.txt")
	require.ErrorIs(t, err, ErrInvalidFormat)
}
