package testid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain id", in: "health-check", want: "health-check"},
		{name: "pick placeholder", in: "pick:search-$_pick", want: "search-"},
		{name: "each placeholder", in: "each:get-user-$id", want: "get-user-"},
		{name: "each catch-all", in: "each:$id", want: ""},
		{name: "multiple placeholders", in: "each:user-$id-role-$role", want: "user--role-"},
		{name: "placeholder without prefix", in: "get-$id", want: "get-"},
		{name: "empty", in: "", want: ""},
		{name: "bare dollar", in: "cost-$", want: "cost-$"},
		{name: "stacked prefixes", in: "each:pick:x-$id", want: "x-"},
		{name: "removal exposes prefix", in: "each$x:foo", want: "foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"health-check",
		"pick:search-$_pick",
		"each:get-user-$id",
		"each:each:x",
		"each$x:foo",
		"pick:$a$b$c",
		"$$$",
		"each:",
		"pick:each:$id-",
		"日本-$id",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestIsDataDriven(t *testing.T) {
	require.True(t, IsDataDriven("each:$id"))
	require.True(t, IsDataDriven("pick:search-$_pick"))
	require.False(t, IsDataDriven("health-check"))
	require.False(t, IsDataDriven("get-$id"))
	require.True(t, IsPick("pick:x"))
	require.False(t, IsPick("each:x"))
}

func TestPattern(t *testing.T) {
	require.Equal(t, "get-user-$id", Pattern("each:get-user-$id"))
	require.Equal(t, "plain", Pattern("plain"))
}
