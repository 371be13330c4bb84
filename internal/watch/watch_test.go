package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/unirecords/internal/config"
	"github.com/kingrea/unirecords/internal/refresh"
)

type fakeRefresher struct {
	calls chan refresh.Category
}

func (f *fakeRefresher) RefreshSpecific(_ context.Context, category refresh.Category) refresh.Outcome {
	f.calls <- category
	return refresh.Outcome{Category: category, Status: refresh.StatusOK}
}

func testPaths(dir string) config.Paths {
	return config.Paths{
		StaffAssignments:   filepath.Join(dir, "staff_module_assignments.json"),
		StudentAssignments: filepath.Join(dir, "student_module_assignments.json"),
		Courses:            filepath.Join(dir, "courses.json"),
		Modules:            filepath.Join(dir, "modules.json"),
		Staff:              filepath.Join(dir, "staff.csv"),
		Students:           filepath.Join(dir, "students.json"),
	}
}

func TestFilesMapsCategories(t *testing.T) {
	paths := testPaths(t.TempDir())
	files := Files(paths)
	assert.Len(t, files, 6)
	assert.Equal(t, refresh.Staff, files[clean(paths.Staff)])
	assert.Equal(t, refresh.Assignments, files[clean(paths.StaffAssignments)])
	assert.Equal(t, refresh.Assignments, files[clean(paths.StudentAssignments)])
	assert.Equal(t, refresh.Modules, files[clean(paths.Modules)])
}

func TestWatcherRefreshesChangedCategory(t *testing.T) {
	dir := t.TempDir()
	paths := testPaths(dir)
	refresher := &fakeRefresher{calls: make(chan refresh.Category, 8)}
	w, err := New(paths, refresher, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(paths.Courses, []byte(`{"courses": []}`), 0o644))
	}

	select {
	case got := <-refresher.calls:
		assert.Equal(t, refresh.Courses, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no refresh after writing courses.json")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.NoError(t, w.Close())
}

func TestNewRequiresRefresher(t *testing.T) {
	_, err := New(testPaths(t.TempDir()), nil)
	assert.Error(t, err)
}
