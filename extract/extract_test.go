package extract

import (
	"testing"

	"github.com/glubean/testbridge/model"
	"github.com/stretchr/testify/require"
)

const sampleSource = `import { test } from "@glubean/sdk";
import { users } from "./data.ts";

export const health = test(
  { id: "health-check", name: "Health check", tags: ["smoke", "api"] },
  async (ctx) => {
    ctx.expect(1).toBe(1);
  },
);

export const login = test("login-flow")
  .meta({ name: "Login flow", tags: "auth" })
  .step("open session", async (ctx) => {})
  .step("submit credentials", async (ctx, state) => {
    return { token: "x(" };
  });

export const getUser = test.each(users)("get-user-$id", async (ctx, row) => {});

export const search = test.pick(examples)({ id: "search-$_pick", name: "Search" }, async (ctx) => {});

export const missingId = test({ name: "no id here" }, async () => {});

export const dup = test("health-check", async () => {});
`

func TestExtract(t *testing.T) {
	got := Extract(sampleSource)

	require.Equal(t, []model.TestDescriptor{
		{
			ID:         "health-check",
			Name:       "Health check",
			Tags:       []string{"smoke", "api"},
			ExportName: "health",
			Line:       4,
		},
		{
			ID:         "login-flow",
			Name:       "Login flow",
			Tags:       []string{"auth"},
			ExportName: "login",
			Line:       11,
			Steps:      []string{"open session", "submit credentials"},
		},
		{
			ID:         "each:get-user-$id",
			ExportName: "getUser",
			Line:       18,
		},
		{
			ID:         "pick:search-$_pick",
			Name:       "Search",
			ExportName: "search",
			Line:       20,
		},
	}, got)
}

func TestExtract_NoSDKImport(t *testing.T) {
	src := `import { test } from "vitest";
export const a = test("a", () => {});
`
	require.Empty(t, Extract(src))
}

func TestExtract_Variants(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs []string
	}{
		{
			name:    "jsr specifier with version",
			body:    `export const a = test("a", async () => {});`,
			wantIDs: []string{"a"},
		},
		{
			name:    "generic each",
			body:    `export const rows = test.each<User>(data)("row-$id", async () => {});`,
			wantIDs: []string{"each:row-$id"},
		},
		{
			name:    "type annotation",
			body:    `export const typed: Test = test("typed");`,
			wantIDs: []string{"typed"},
		},
		{
			name:    "quoted keys and comments",
			body:    "export const q = test({\n  // primary id\n  \"id\": 'quoted', /* tags */ tags: ['x'] }, fn);",
			wantIDs: []string{"quoted"},
		},
		{
			name:    "interpolated template id is dynamic",
			body:    "export const dyn = test(`user-${n}`, fn);\nexport const fixed = test(`fixed`, fn);",
			wantIDs: []string{"fixed"},
		},
		{
			name:    "unknown static member",
			body:    `export const other = test.only("x", fn);`,
			wantIDs: nil,
		},
		{
			name:    "not a test call",
			body:    `export const helper = testHelper("x");`,
			wantIDs: nil,
		},
		{
			name:    "unbalanced declaration is dropped",
			body:    "export const ok = test(\"ok\", async () => {});\nexport const broken = test(\"broken\", async () => {\n",
			wantIDs: []string{"ok"},
		},
		{
			name:    "each with object metadata",
			body:    `export const e = test.each(rows)({ id: "order-$n", tags: ["orders"] }, fn);`,
			wantIDs: []string{"each:order-$n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "import { test } from \"jsr:@glubean/sdk@0.4.1\";\n" + tt.body
			var ids []string
			for _, d := range Extract(src) {
				ids = append(ids, d.ID)
			}
			require.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestExtract_FirstDeclarationWins(t *testing.T) {
	src := `import { test } from "@glubean/sdk";
export const first = test({ id: "same", name: "First" }, fn);
export const second = test({ id: "same", name: "Second" }, fn);
export const third = test("same");
`
	got := Extract(src)
	require.Len(t, got, 1)
	require.Equal(t, "First", got[0].Name)
	require.Equal(t, "first", got[0].ExportName)
}

func TestExtract_NeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"import \"@glubean/sdk\";\nexport const a = test",
		"import \"@glubean/sdk\";\nexport const a = test(",
		"import \"@glubean/sdk\";\nexport const a = test.each(",
		"import \"@glubean/sdk\";\nexport const a = test({ id: ",
		"import \"@glubean/sdk\";\nexport const a = test(\"x\").step(",
		"import \"@glubean/sdk\";\nexport const a = test(\"x\").meta({ tags: [ })",
		"import \"@glubean/sdk\";\nexport const a = test('unterminated)",
		"import \"@glubean/sdk\";\nexport const a = test.each<(rows)(\"x\")",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() { Extract(in) }, "input %q", in)
	}
}
