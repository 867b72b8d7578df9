package runner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name string
		inv  Invocation
		want []string
	}{
		{
			name: "whole file",
			inv:  Invocation{File: "api.test.ts"},
			want: []string{"run", "api.test.ts", "--verbose", "--pretty", "--result-json", "--emit-full-trace"},
		},
		{
			name: "filter and pick",
			inv:  Invocation{File: "api.test.ts", Filter: "search-", Pick: "by-name"},
			want: []string{"run", "api.test.ts", "--filter", "search-", "--pick", "by-name", "--verbose", "--pretty", "--result-json", "--emit-full-trace"},
		},
		{
			name: "env file and trace limit",
			inv:  Invocation{File: "a.ts", EnvFile: ".env.staging", TraceLimit: 5},
			want: []string{"run", "a.ts", "--env-file", ".env.staging", "--trace-limit", "5", "--verbose", "--pretty", "--result-json", "--emit-full-trace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, BuildArgs(tt.inv))
		})
	}
}

func TestForTest(t *testing.T) {
	inv := ForTest("a.ts", "each:get-user-$id", "ignored")
	require.Equal(t, "get-user-", inv.Filter)
	require.Empty(t, inv.Pick)

	inv = ForTest("a.ts", "pick:search-$_pick", "by-name")
	require.Equal(t, "search-", inv.Filter)
	require.Equal(t, "by-name", inv.Pick)

	inv = ForTest("a.ts", "health-check", "")
	require.Equal(t, "health-check", inv.Filter)
}

func TestCommandLine(t *testing.T) {
	got := CommandLine([]string{"glubean", "run", "my tests/a.ts", "--filter", "it's"})
	require.Equal(t, `glubean run 'my tests/a.ts' --filter 'it'"'"'s'`, got)
}
