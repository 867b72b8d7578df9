//go:build !windows

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glubean/testbridge/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const source = `import { test } from "@glubean/sdk";

export const health = test("health-check", async () => {});

export const users = test.each(rows)("user-$id", async () => {});
`

const result = `{"tests":[{"testId":"health-check","success":true,"durationMs":3},{"testId":"user-1","success":false,"events":[{"type":"error","message":"boom"}]}]}`

// newTestApp creates a workspace whose runner writes a fixed result artifact.
func newTestApp(t *testing.T) (*App, *bytes.Buffer, string) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "api.test.ts"), []byte(source), 0o644))

	cfg := config.Default()
	cfg.RunnerCommand = []string{"/bin/sh", "-c", `echo '` + result + `' > "${2%.*}.result.json"`, "glubean"}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".glubean"), 0o755))
	require.NoError(t, os.WriteFile(config.Path(root), data, 0o644))

	app := New()
	var out bytes.Buffer
	app.out = &out
	app.cli.ExitErrHandler = func(*cli.Context, error) {}
	return app, &out, root
}

func TestDiscoverJSON(t *testing.T) {
	app, out, root := newTestApp(t)

	require.NoError(t, app.Run([]string{AppName, "--root", root, "discover", "--json"}))

	var files []struct {
		File  string `json:"file"`
		Tests []struct {
			ID string `json:"id"`
		} `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &files))
	require.Len(t, files, 1)
	require.Equal(t, "api.test.ts", files[0].File)
	require.Len(t, files[0].Tests, 2)
	require.Equal(t, "each:user-$id", files[0].Tests[1].ID)
}

func TestRunAndList(t *testing.T) {
	app, out, root := newTestApp(t)
	file := filepath.Join(root, "api.test.ts")

	require.NoError(t, app.Run([]string{AppName, "--root", root, "run", "--quiet", "--test", "health-check", file}))
	require.Contains(t, out.String(), "health-check")
	require.Contains(t, out.String(), "passed")

	out.Reset()
	err := app.Run([]string{AppName, "--root", root, "run", "--quiet", file})
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 test(s) did not pass")
	require.Contains(t, out.String(), "boom")

	out.Reset()
	require.NoError(t, app.Run([]string{AppName, "--root", root, "list"}))
	require.Contains(t, out.String(), "Runs (2 total)")
}

func writeTraces(t *testing.T, root string, names ...string) {
	dir := filepath.Join(root, ".glubean", "traces", "api.test", "health-check")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		body := `[{"request": {"url": "` + name + `"}, "response": {"status": 200},},]`
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".trace.jsonc"), []byte(body), 0o644))
	}
}

func TestTracesView(t *testing.T) {
	app, out, root := newTestApp(t)
	writeTraces(t, root, "2024-05-01T10-00-00", "2024-05-02T10-00-00")

	require.NoError(t, app.Run([]string{AppName, "--root", root, "traces", "view", "api.test.ts", "health-check", "-1"}))
	require.Contains(t, out.String(), "=== Trace: 2024-05-01T10-00-00 ===")

	out.Reset()
	require.NoError(t, app.Run([]string{AppName, "--root", root, "traces", "diff", "api.test.ts", "health-check"}))
	require.Contains(t, out.String(), "-      \"url\": \"2024-05-01T10-00-00\"")
	require.Contains(t, out.String(), "+      \"url\": \"2024-05-02T10-00-00\"")
}

func TestTracesBrowse(t *testing.T) {
	app, out, root := newTestApp(t)
	writeTraces(t, root, "2024-05-01T10-00-00", "2024-05-02T10-00-00")
	app.in = strings.NewReader("o\nolder\nn\nbogus\nq\n-1\n")

	require.NoError(t, app.Run([]string{AppName, "--root", root, "traces", "browse", "api.test.ts", "health-check"}))

	var headers []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "=== Trace: ") {
			headers = append(headers, strings.TrimPrefix(line, "=== Trace: "))
		}
	}
	require.Equal(t, []string{
		"2024-05-02T10-00-00 ===",
		"2024-05-01T10-00-00 ===",
		"2024-05-02T10-00-00 ===",
	}, headers)
	require.Contains(t, out.String(), "Already at the oldest trace")
	require.Contains(t, out.String(), "no trace found matching: bogus")
}
