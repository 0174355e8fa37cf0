package flow

import "path/filepath"

// Subgraph returns the set of node names that are both downstream of at
// least one name matching a pattern in from (inclusive) and upstream of
// at least one name matching a pattern in to (inclusive). An empty from
// is treated as the full root set; an empty to is treated as the full
// leaf set. Patterns are glob-style over node names (path.Match syntax).
func (f *ProcessFlow) Subgraph(from, to []string) []string {
	fromNames := f.matchAll(from, f.Roots())
	toNames := f.matchAll(to, f.Leaves())

	downstream := f.reachable(fromNames, f.dependents, func(e Edge) string { return e.From })
	upstream := f.reachable(toNames, f.prereqsOf, func(e Edge) string { return e.To })

	var out []string
	for _, name := range f.declOrder {
		_, inDown := downstream[name]
		_, inUp := upstream[name]
		if inDown && inUp {
			out = append(out, name)
		}
	}
	return out
}

// matchAll resolves a set of glob patterns against every node name,
// falling back to fallback when patterns is empty.
func (f *ProcessFlow) matchAll(patterns []string, fallback []string) []string {
	if len(patterns) == 0 {
		return fallback
	}
	var out []string
	for _, name := range f.declOrder {
		for _, pat := range patterns {
			if ok, _ := filepath.Match(pat, name); ok {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// reachable walks edges outward from seeds, returning every node reached
// (seeds included). edgesOf supplies the adjacency in the desired
// direction and next extracts the neighbor name from an edge.
func (f *ProcessFlow) reachable(seeds []string, edgesOf map[string][]Edge, next func(Edge) string) map[string]struct{} {
	seen := make(map[string]struct{}, len(seeds))
	queue := append([]string(nil), seeds...)
	for _, s := range seeds {
		seen[s] = struct{}{}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range edgesOf[cur] {
			n := next(e)
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			queue = append(queue, n)
		}
	}
	return seen
}
