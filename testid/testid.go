// Package testid normalizes declared test IDs into the prefix used both for the
// runner's --filter flag and for matching runtime results.
package testid

import (
	"regexp"
	"strings"
)

const (
	// EachPrefix marks a data-driven group declared with test.each.
	EachPrefix = "each:"
	// PickPrefix marks an example-selection group declared with test.pick.
	PickPrefix = "pick:"
)

var placeholderRe = regexp.MustCompile(`\$\w+`)

// IsDataDriven reports whether id belongs to a data-driven or example-selection group.
func IsDataDriven(id string) bool {
	return strings.HasPrefix(id, EachPrefix) || strings.HasPrefix(id, PickPrefix)
}

// IsPick reports whether id belongs to an example-selection group.
func IsPick(id string) bool {
	return strings.HasPrefix(id, PickPrefix)
}

// Pattern returns id without its synthetic prefix, placeholders untouched.
func Pattern(id string) string {
	return stripPrefixes(id)
}

// Normalize strips synthetic prefixes and removes every placeholder token.
//
//	Normalize("pick:search-$_pick") == "search-"
//	Normalize("each:$id")           == ""
//	Normalize("health-check")       == "health-check"
//
// The two steps repeat until the value is stable, so Normalize is idempotent for
// any input.
func Normalize(id string) string {
	for {
		next := placeholderRe.ReplaceAllString(stripPrefixes(id), "")
		if next == id {
			return next
		}
		id = next
	}
}

func stripPrefixes(id string) string {
	for {
		switch {
		case strings.HasPrefix(id, EachPrefix):
			id = id[len(EachPrefix):]
		case strings.HasPrefix(id, PickPrefix):
			id = id[len(PickPrefix):]
		default:
			return id
		}
	}
}
