package fileproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVZipsRowsAgainstHeader(t *testing.T) {
	path := writeFile(t, "staff.csv", "id, name ,department\n1,Ada,Engineering\n2,Grace,Maths\n")
	content, err := Load(path)
	require.NoError(t, err)

	records, err := content.Sequence()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{"id": "1", "name": "Ada", "department": "Engineering"}, records[0])
}

// Short rows are accepted and produce records without the trailing columns.
// Callers must not rely on every header key being present.
func TestCSVShortRowYieldsPartialRecord(t *testing.T) {
	path := writeFile(t, "students.csv", "id,name,course\n3,Linus\n")
	content, err := Load(path)
	require.NoError(t, err)

	records, err := content.Sequence()
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, hasCourse := records[0]["course"]
	assert.False(t, hasCourse)
	assert.Equal(t, "Linus", records[0]["name"])
}

func TestCSVDropsExtraFields(t *testing.T) {
	content, err := Load(writeFile(t, "x.csv", "a\n1,2,3\n"))
	require.NoError(t, err)
	records, _ := content.Sequence()
	assert.Equal(t, Record{"a": "1"}, records[0])
}

func TestCSVEmptyFileIsEmptySequence(t *testing.T) {
	content, err := Load(writeFile(t, "x.csv", ""))
	require.NoError(t, err)
	records, err := content.Sequence()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVMalformedQuoting(t *testing.T) {
	_, err := Load(writeFile(t, "x.csv", "a,b\n\"unterminated,2\n"))
	require.ErrorIs(t, err, ErrParse)
}
