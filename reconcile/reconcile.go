// Package reconcile matches statically discovered test IDs to the concrete
// entries reported by the runner.
package reconcile

import (
	"sort"
	"strings"

	"github.com/glubean/testbridge/model"
	"github.com/glubean/testbridge/testid"
)

// MatchSet is parallel to the descriptor IDs passed to Match: element i holds
// the entries claimed by ID i. An empty element means the test was skipped.
type MatchSet [][]model.TestResult

// Claimed returns the total number of claimed entries.
func (m MatchSet) Claimed() int {
	n := 0
	for _, c := range m {
		n += len(c)
	}
	return n
}

type claims struct {
	entries []model.TestResult
	taken   map[int]bool
	byID    [][]int
}

func (c *claims) claim(owner, entry int) {
	c.taken[entry] = true
	c.byID[owner] = append(c.byID[owner], entry)
}

// Match assigns runtime entries to descriptor IDs. Each entry is claimed by at
// most one ID.
//
// Pass 1 handles IDs whose target is unambiguous: plain IDs claim one entry by
// exact equality, then data-driven IDs with a non-empty normalized prefix claim
// every unclaimed entry starting with that prefix, longest prefix first.
// Pass 2 gives every entry still unclaimed to the first data-driven ID whose
// prefix is empty and that has claimed nothing.
//
// Pass 1 deliberately does not walk the IDs in declaration order. Exact IDs
// always claim before any prefix group, and prefix groups claim longest prefix
// first, so a group declared early cannot take an entry that names another
// test exactly or belongs to a more specific group.
func Match(ids []string, entries []model.TestResult) MatchSet {
	c := &claims{
		entries: entries,
		taken:   make(map[int]bool, len(entries)),
		byID:    make([][]int, len(ids)),
	}

	type group struct {
		idx    int
		prefix string
	}
	var prefixed, catchAll []group

	for i, id := range ids {
		if !testid.IsDataDriven(id) {
			for j, e := range entries {
				if !c.taken[j] && e.TestID == id {
					c.claim(i, j)
					break
				}
			}
			continue
		}
		prefix := testid.Normalize(id)
		if prefix == "" {
			catchAll = append(catchAll, group{idx: i})
			continue
		}
		prefixed = append(prefixed, group{idx: i, prefix: prefix})
	}

	// More specific prefixes first so "get-" cannot take "get-user-1" from "get-user-".
	sort.SliceStable(prefixed, func(a, b int) bool {
		return len(prefixed[a].prefix) > len(prefixed[b].prefix)
	})
	for _, g := range prefixed {
		for j, e := range entries {
			if !c.taken[j] && strings.HasPrefix(e.TestID, g.prefix) {
				c.claim(g.idx, j)
			}
		}
	}

	for _, g := range catchAll {
		if len(c.byID[g.idx]) > 0 {
			continue
		}
		for j := range entries {
			if !c.taken[j] {
				c.claim(g.idx, j)
			}
		}
	}

	out := make(MatchSet, len(ids))
	for i, idxs := range c.byID {
		sort.Ints(idxs)
		for _, j := range idxs {
			out[i] = append(out[i], entries[j])
		}
	}
	return out
}

// Unclaimed returns the entries no ID claimed, in artifact order.
func Unclaimed(matches MatchSet, entries []model.TestResult) []model.TestResult {
	seen := make(map[string]int)
	for _, c := range matches {
		for _, e := range c {
			seen[e.TestID]++
		}
	}
	var out []model.TestResult
	for _, e := range entries {
		if seen[e.TestID] > 0 {
			seen[e.TestID]--
			continue
		}
		out = append(out, e)
	}
	return out
}
