package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glubean/testbridge/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"aaaaaaaa-1111", "bbbbbbbb-2222", "cccccccc-3333"} {
		_, err := Save(root, model.RunRecord{
			ID:        id,
			Mode:      model.RunModeRun,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			File:      "api.test.ts",
			States:    map[string]model.TestState{"health": model.StatePassed},
		})
		require.NoError(t, err)
	}

	// A broken record is skipped.
	broken := filepath.Join(root, Dir, "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, recordFile), []byte("{"), 0o644))

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "cccccccc-3333", entries[0].Run.ID)
	require.Equal(t, model.StatePassed, entries[2].Run.States["health"])

	e, err := Find(entries, "BBBB")
	require.NoError(t, err)
	require.Equal(t, "bbbbbbbb-2222", e.Run.ID)

	_, err = Find(entries, "zz")
	require.Error(t, err)
}

func TestLoadEntriesMissing(t *testing.T) {
	entries, err := LoadEntries(zerolog.Nop(), t.TempDir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFindRootFallsBack(t *testing.T) {
	dir := t.TempDir()
	root, err := FindRoot(dir)
	require.NoError(t, err)
	require.NotEmpty(t, root)
}

func TestSaveNamesRunDirectory(t *testing.T) {
	root := t.TempDir()
	dir, err := Save(root, model.RunRecord{
		ID:        "0123456789abcdef",
		Timestamp: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Git:       &model.Git{Commit: "deadbeefcafe0000", Branch: "main"},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, Dir, "20240501-103000-deadbeef-01234567"), dir)
}
