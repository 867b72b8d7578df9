package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const apiSource = `import { test } from "@glubean/sdk";

export const health = test({ id: "health-check", name: "Health check" }, async (ctx) => {});

export const getUser = test.each(users)("get-user-$id", async (ctx, row) => {});

export const login = test("login-flow")
  .step("open session", async (ctx) => {})
  .step("submit credentials", async (ctx) => {});
`

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDiscoverCachesUntilChanged(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "api.test.ts", apiSource)

	d, err := NewDiscovery(zerolog.Nop(), 8, 2)
	require.NoError(t, err)

	tests, err := d.Discover(path)
	require.NoError(t, err)
	require.Len(t, tests, 3)

	// A changed file is read again.
	updated := apiSource + "\nexport const extra = test(\"extra\", async () => {});\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	tests, err = d.Discover(path)
	require.NoError(t, err)
	require.Len(t, tests, 4)

	require.NoError(t, os.Remove(path))
	_, err = d.Discover(path)
	require.Error(t, err)
}

func TestDiscoverAll(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.test.ts", apiSource)
	b := writeSource(t, dir, "b.test.ts", `import { test } from "vitest";`)
	missing := filepath.Join(dir, "missing.test.ts")

	d, err := NewDiscovery(zerolog.Nop(), 8, 2)
	require.NoError(t, err)

	found, err := d.DiscoverAll(context.Background(), []string{missing, b, a})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, a, found[0].Path)
	require.Len(t, found[0].Tests, 3)
}

func TestFindTestFiles(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "api.test.ts", apiSource)
	writeSource(t, dir, "nested/users.test.ts", apiSource)
	writeSource(t, dir, "node_modules/pkg/x.test.ts", apiSource)
	writeSource(t, dir, "helper.ts", "")

	files, err := FindTestFiles(dir, func(p string) bool {
		return filepath.Ext(filepath.Base(p)) == ".ts" && filepath.Ext(trimExt(p)) == ".test"
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "api.test.ts"),
		filepath.Join(dir, "nested", "users.test.ts"),
	}, files)
}

func trimExt(p string) string {
	return p[:len(p)-len(filepath.Ext(p))]
}
