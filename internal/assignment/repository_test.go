package assignment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/unirecords/internal/fileproc"
)

var fixedNow = time.Date(2024, 9, 1, 10, 30, 0, 0, time.UTC)

func newStaffRepo(t *testing.T, path string) *Repository {
	t.Helper()
	repo, err := NewStaffRepository(path, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return repo
}

func TestLoadMissingFileIsEmptyStore(t *testing.T) {
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "staff_module_assignments.json"))
	store, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Len(t, store, 0)

	exists, err := repo.Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staff_module_assignments.json")
	repo := newStaffRepo(t, path)
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	original := Store{
		1: {OwnerID: 1, ModuleIDs: []string{"M1", "M2"}, LastUpdated: stamp},
		7: {OwnerID: 7, ModuleIDs: []string{"M3", "M3"}, LastUpdated: stamp},
		9: {OwnerID: 9, ModuleIDs: nil, LastUpdated: stamp},
	}
	require.NoError(t, repo.Save(ctx, original))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []string{"M1", "M2"}, loaded[1].ModuleIDs)
	assert.Equal(t, []string{"M3", "M3"}, loaded[7].ModuleIDs, "duplicates are kept as given")
	assert.Equal(t, []string{}, loaded[9].ModuleIDs)
	assert.True(t, stamp.Equal(loaded[1].LastUpdated))
}

func TestSaveWritesDocumentedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "student_module_assignments.json")
	repo, err := NewStudentRepository(path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), Store{
		3: {OwnerID: 3, ModuleIDs: []string{"X1"}, LastUpdated: fixedNow},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `{
  "assignments": [
    {
      "lastUpdated": "2024-09-01T10:30:00Z",
      "moduleIds": [
        "X1"
      ],
      "studentId": 3
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}

func TestLoadRejectsSequenceRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"staffId":1}]`), 0o644))
	_, err := newStaffRepo(t, path).Load(context.Background())
	require.ErrorIs(t, err, fileproc.ErrParse)
}

func TestLoadRejectsNonListAssignments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"assignments":{"staffId":1}}`), 0o644))
	_, err := newStaffRepo(t, path).Load(context.Background())
	require.ErrorIs(t, err, fileproc.ErrParse)
}

func TestLoadRequiresOwnerID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"assignments":[{"studentId":1,"moduleIds":[]}]}`), 0o644))
	_, err := newStaffRepo(t, path).Load(context.Background())
	require.ErrorIs(t, err, fileproc.ErrParse)
}

func TestLoadRejectsMalformedEntries(t *testing.T) {
	cases := map[string]string{
		"non-string module":  `{"assignments":[{"staffId":1,"moduleIds":[101,"M2"]}]}`,
		"scalar module list": `{"assignments":[{"staffId":3,"moduleIds":"M9"}]}`,
		"bad timestamp":      `{"assignments":[{"staffId":5,"moduleIds":["M1"],"lastUpdated":"yesterday"}]}`,
		"numeric timestamp":  `{"assignments":[{"staffId":6,"moduleIds":["M1"],"lastUpdated":12}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "a.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			repo := newStaffRepo(t, path)

			_, err := repo.Load(context.Background())
			require.ErrorIs(t, err, fileproc.ErrParse)

			require.ErrorIs(t, repo.Update(context.Background(), 2, []string{"X"}), fileproc.ErrParse)
			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, body, string(raw))
		})
	}
}

func TestLoadTreatsMissingOrNullModulesAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	body := `{"assignments":[{"staffId":1},{"staffId":2,"moduleIds":null,"lastUpdated":null}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	store, err := newStaffRepo(t, path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, store[1].ModuleIDs)
	assert.Equal(t, []string{}, store[2].ModuleIDs)
	assert.True(t, store[2].LastUpdated.IsZero())
}

func TestLoadAcceptsZonelessTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	body := `{"assignments":[{"staffId":4,"moduleIds":["M9"],"lastUpdated":"2023-05-06T07:08:09.123"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	store, err := newStaffRepo(t, path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2023, store[4].LastUpdated.Year())
}

func TestUpdateOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "staff_module_assignments.json"))
	require.NoError(t, repo.Update(ctx, 5, []string{"X1"}))

	got, err := repo.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"X1"}, got)

	store, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, fixedNow.Equal(store[5].LastUpdated))
}

func TestUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staff_module_assignments.json")
	repo := newStaffRepo(t, path)
	require.NoError(t, repo.Update(ctx, 2, []string{"A", "B"}))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, 2, []string{"A", "B"}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestUpdateReplacesOnlyTargetOwner(t *testing.T) {
	ctx := context.Background()
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, repo.Update(ctx, 1, []string{"A"}))
	require.NoError(t, repo.Update(ctx, 2, []string{"B"}))
	require.NoError(t, repo.Update(ctx, 1, []string{"C", "D"}))

	store, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D"}, store[1].ModuleIDs)
	assert.Equal(t, []string{"B"}, store[2].ModuleIDs)
}

func TestUpdateValidatesInput(t *testing.T) {
	ctx := context.Background()
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "s.json"))
	assert.Error(t, repo.Update(ctx, 0, []string{"A"}))
	assert.Error(t, repo.Update(ctx, 3, []string{"A", "  "}))
	require.NoError(t, repo.Update(ctx, 3, []string{" A "}))
	got, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)
}

func TestGetUnknownOwnerIsEmpty(t *testing.T) {
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "s.json"))
	got, err := repo.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, repo.Update(ctx, 1, []string{"A"}))
	require.NoError(t, repo.Remove(ctx, 1))
	store, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, store)
}

// Concurrent updates for different owners through separate repositories on
// the same file must all survive.
func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staff_module_assignments.json")
	repoA := newStaffRepo(t, path)
	repoB := newStaffRepo(t, path)

	const owners = 40
	var wg sync.WaitGroup
	errs := make(chan error, owners)
	for i := 1; i <= owners; i++ {
		repo := repoA
		if i%2 == 0 {
			repo = repoB
		}
		wg.Add(1)
		go func(id int, repo *Repository) {
			defer wg.Done()
			errs <- repo.Update(ctx, id, []string{fmt.Sprintf("M%d", id)})
		}(i, repo)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	store, err := repoA.Load(ctx)
	require.NoError(t, err)
	require.Len(t, store, owners)
	for i := 1; i <= owners; i++ {
		assert.Equal(t, []string{fmt.Sprintf("M%d", i)}, store[i].ModuleIDs)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "s.json"))
	require.ErrorIs(t, repo.Update(ctx, 1, []string{"A"}), context.Canceled)
	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(KindStaff, " ", nil)
	require.Error(t, err)
	_, err = New(Kind{}, "x.json", nil)
	require.Error(t, err)
}

func TestGenerateWithoutPolicy(t *testing.T) {
	repo := newStaffRepo(t, filepath.Join(t.TempDir(), "s.json"))
	_, err := repo.Generate(context.Background())
	require.Error(t, err)
}
