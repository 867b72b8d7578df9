// Package extract discovers test declarations in source files written against
// the Glubean SDK. It works on the raw text with a handful of patterns and a
// bracket matcher; anything it cannot follow is skipped, never reported.
package extract

import (
	"regexp"
	"strings"

	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/testid"
)

var (
	// sdkImportRe matches the module specifier of an SDK import, with or without
	// a registry scheme or version.
	sdkImportRe = regexp.MustCompile(`["'](?:jsr:|npm:)?@glubean/sdk\b`)

	// exportRe finds `export const name = test` at the start of a line. An
	// optional type annotation between the name and "=" is allowed.
	exportRe = regexp.MustCompile(`(?m)^[ \t]*export\s+const\s+([A-Za-z_$][\w$]*)\s*(?::[^=\n]+)?=\s*test\b`)
)

// HasSDKImport reports whether source imports the SDK.
func HasSDKImport(source string) bool {
	return sdkImportRe.MatchString(source)
}

// Extract returns the test descriptors declared in source, in declaration
// order. IDs are unique; the first declaration of an ID wins. A file that
// does not import the SDK yields nil.
func Extract(source string) []model.TestDescriptor {
	if !HasSDKImport(source) {
		return nil
	}

	var out []model.TestDescriptor
	seen := make(map[string]bool)

	for _, m := range exportRe.FindAllStringSubmatchIndex(source, -1) {
		d, ok := parseDeclaration(source, m[1])
		if !ok || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		d.ExportName = source[m[2]:m[3]]
		d.Line = strings.Count(source[:m[0]], "\n") + 1
		out = append(out, d)
	}
	return out
}

// parseDeclaration parses the call chain starting right after the `test`
// identifier at pos.
func parseDeclaration(src string, pos int) (model.TestDescriptor, bool) {
	var d model.TestDescriptor
	prefix := ""

	i := skipSpace(src, pos)
	if i < len(src) && src[i] == '.' {
		name, next := readIdent(src, skipSpace(src, i+1))
		switch name {
		case "each":
			prefix = testid.EachPrefix
		case "pick":
			prefix = testid.PickPrefix
		default:
			return d, false
		}
		i = skipGenerics(src, skipSpace(src, next))
		if i >= len(src) || src[i] != '(' {
			return d, false
		}
		end := matchClose(src, i)
		if end < 0 {
			return d, false
		}
		i = skipSpace(src, end+1)
	}

	if i >= len(src) || src[i] != '(' {
		return d, false
	}
	end := matchClose(src, i)
	if end < 0 {
		return d, false
	}
	args := splitTopLevel(src[i+1:end], ',')
	first := strings.TrimSpace(skipComments(args[0]))

	switch {
	case strings.HasPrefix(first, "{"):
		brace := matchClose(first, 0)
		if brace < 0 {
			return d, false
		}
		fields := objectFields(first[1:brace])
		id, ok := stringLiteral(fields["id"])
		if !ok || id == "" {
			return d, false
		}
		d.ID = id
		applyMeta(&d, fields)
	default:
		id, ok := stringLiteral(first)
		if !ok || id == "" {
			return d, false
		}
		d.ID = id
	}
	d.ID = prefix + d.ID

	parseChain(src, end+1, &d)
	return d, true
}

// parseChain follows `.meta(...)` and `.step(...)` calls after the test call.
func parseChain(src string, i int, d *model.TestDescriptor) {
	for {
		i = skipSpace(src, i)
		if i >= len(src) || src[i] != '.' {
			return
		}
		name, next := readIdent(src, skipSpace(src, i+1))
		if name == "" {
			return
		}
		open := skipGenerics(src, skipSpace(src, next))
		if open >= len(src) || src[open] != '(' {
			return
		}
		end := matchClose(src, open)
		if end < 0 {
			return
		}
		args := splitTopLevel(src[open+1:end], ',')
		first := strings.TrimSpace(skipComments(args[0]))

		switch name {
		case "meta":
			if strings.HasPrefix(first, "{") {
				if brace := matchClose(first, 0); brace > 0 {
					applyMeta(d, objectFields(first[1:brace]))
				}
			}
		case "step":
			if step, ok := stringLiteral(first); ok {
				d.Steps = append(d.Steps, step)
			}
		}
		i = end + 1
	}
}

func applyMeta(d *model.TestDescriptor, fields map[string]string) {
	if name, ok := stringLiteral(fields["name"]); ok {
		d.Name = name
	}
	if tags := stringList(fields["tags"]); len(tags) > 0 {
		d.Tags = tags
	}
}

// skipGenerics skips a type argument list such as `<User>`.
func skipGenerics(src string, i int) int {
	if i >= len(src) || src[i] != '<' {
		return i
	}
	depth := 0
	for j := i; j < len(src); j++ {
		switch src[j] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return skipSpace(src, j+1)
			}
		case '(', ';', '\n':
			return i
		}
	}
	return i
}
