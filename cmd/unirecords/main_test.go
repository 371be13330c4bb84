package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/unirecords/internal/catalog"
)

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, catalog.WriteCourses(filepath.Join(dir, "courses.json"), []catalog.Course{
		{Name: "Computer Science", Code: "CS", Department: "Computing"},
	}))
	require.NoError(t, catalog.WriteModules(filepath.Join(dir, "modules.json"), []catalog.Module{
		{Name: "Algorithms", Code: "CS101", AcademicYear: "2024", AssociatedCourses: []string{"CS"}},
		{Name: "Compilers", Code: "CS201", AcademicYear: "2024", AssociatedCourses: []string{"CS"}},
	}))
	require.NoError(t, catalog.WriteStaff(filepath.Join(dir, "staff.json"), []catalog.Staff{
		{ID: 1, Name: "Barbara", Department: "Computing", MaxModules: 1},
	}))
	require.NoError(t, catalog.WriteStudents(filepath.Join(dir, "students.json"), []catalog.Student{
		{ID: 20, Name: "Alan", Course: "Computer Science"},
	}))
	return dir
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := seedDataDir(t)
	a, err := newApp(dir)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, runInit(ctx, a, nil, &out))
	assert.Contains(t, out.String(), "Generated student assignments for 1 owners")
	assert.FileExists(t, filepath.Join(dir, "staff_module_assignments.json"))
	assert.FileExists(t, filepath.Join(dir, "student_module_assignments.json"))

	out.Reset()
	require.NoError(t, runShow(ctx, a, []string{"student", "20"}, &out))
	assert.Contains(t, out.String(), "student 20 (Alan, Computer Science)")
	assert.Contains(t, out.String(), "CS101  Algorithms")
	assert.Contains(t, out.String(), "CS201  Compilers")

	out.Reset()
	require.NoError(t, runAssign(ctx, a, []string{"staff", "1", "CS201"}, &out))
	out.Reset()
	require.NoError(t, runShow(ctx, a, []string{"staff", "1"}, &out))
	assert.Contains(t, out.String(), "CS201  Compilers")
	assert.NotContains(t, out.String(), "CS101")

	out.Reset()
	require.NoError(t, runRefresh(ctx, a, []string{"-metrics"}, &out))
	assert.Contains(t, out.String(), "Completed 5 of 5")
	assert.Contains(t, out.String(), `unirecords_refresh_units_total{category="staff",status="ok"} 1`)
	assert.Len(t, a.view.Students(), 1)

	out.Reset()
	require.NoError(t, runUnassign(ctx, a, []string{"staff", "1"}, &out))
	out.Reset()
	require.NoError(t, runShow(ctx, a, []string{"staff", "1"}, &out))
	assert.Contains(t, out.String(), "no modules assigned")

	out.Reset()
	require.NoError(t, runLog(ctx, a, []string{"200"}, &out))
	assert.Contains(t, out.String(), "Assigned staff 1: CS201")
	assert.Contains(t, out.String(), "Completed 5 of 5")
}

func TestRefreshFailsOnBrokenCatalog(t *testing.T) {
	dir := seedDataDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "courses.json"), []byte(`"just a string"`), 0o644))
	a, err := newApp(dir)
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	err = runRefresh(context.Background(), a, []string{"courses"}, &out)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(lastLine(out.String()), "Error refreshing courses"), out.String())
}

func TestArgumentValidation(t *testing.T) {
	a, err := newApp(seedDataDir(t))
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, runAssign(ctx, a, []string{"staff", "1"}, &out))
	assert.Error(t, runShow(ctx, a, []string{"visitor", "1"}, &out))
	assert.Error(t, runShow(ctx, a, []string{"staff", "zero"}, &out))
	assert.Error(t, runRefresh(ctx, a, []string{"parking"}, &out))
	assert.Error(t, runGenerate(ctx, a, []string{"visitors"}, &out))
	assert.Error(t, runLog(ctx, a, []string{"-3"}, &out))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func TestGenerateWithStudentCap(t *testing.T) {
	dir := seedDataDir(t)
	a, err := newApp(dir)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, runGenerate(ctx, a, []string{"student", "-student-max", "1"}, &out))
	assert.Contains(t, out.String(), "Generated student assignments: 1 owners, 1 with modules")
	modules, err := a.students.Get(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, modules, 1)
	assert.NoFileExists(t, filepath.Join(dir, "staff_module_assignments.json"))

	reloaded, err := newApp(dir)
	require.NoError(t, err)
	defer reloaded.Close()
	assert.Equal(t, 1, reloaded.cfg.Project.Assignments.StudentMaxModules)
}
