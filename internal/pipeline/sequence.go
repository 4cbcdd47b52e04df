package pipeline

import "sort"

// Sequence orders abstractions into a teaching sequence: an edge A→B labeled
// "uses" means A depends on B, so B is taught before A. The order is a
// topological sort with a lexical tie-break on abstraction name, making the
// result fully deterministic for identical inputs.
//
// Cycles never make Sequence fail: when the sort stalls, the lowest-weight
// edge still in play is removed (ties broken by from/to name order) and the
// sort re-runs, so a total order always comes out.
func Sequence(abstractions []Abstraction, relationships []Relationship) []Abstraction {
	if len(abstractions) == 0 {
		return nil
	}

	byName := make(map[string]Abstraction, len(abstractions))
	names := make([]string, 0, len(abstractions))
	for _, a := range abstractions {
		if _, ok := byName[a.Name]; ok {
			continue
		}
		byName[a.Name] = a
		names = append(names, a.Name)
	}
	sort.Strings(names)

	edges := make([]Relationship, 0, len(relationships))
	for _, r := range relationships {
		if _, ok := byName[r.From]; !ok {
			continue
		}
		if _, ok := byName[r.To]; !ok {
			continue
		}
		edges = append(edges, r)
	}

	for {
		order, stuck := kahn(names, edges)
		if len(stuck) == 0 {
			out := make([]Abstraction, 0, len(order))
			for _, name := range order {
				out = append(out, byName[name])
			}
			return out
		}
		edges = breakCycle(edges, stuck)
	}
}

// kahn runs one topological pass. order holds the names sequenced so far;
// stuck holds the names left in a cycle when the pass stalls.
func kahn(names []string, edges []Relationship) (order []string, stuck map[string]bool) {
	indegree := make(map[string]int, len(names))
	for _, n := range names {
		indegree[n] = 0
	}
	// A→B means A depends on B: B must be placed before A.
	dependents := make(map[string][]string)
	for _, e := range edges {
		indegree[e.From]++
		dependents[e.To] = append(dependents[e.To], e.From)
	}

	var ready []string
	for _, n := range names {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	placed := make(map[string]bool, len(names))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		placed[next] = true
		var released []string
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				released = append(released, dep)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sort.Strings(ready)
		}
	}

	if len(order) == len(names) {
		return order, nil
	}
	stuck = make(map[string]bool)
	for _, n := range names {
		if !placed[n] {
			stuck[n] = true
		}
	}
	return order, stuck
}

// breakCycle drops the lowest-weight edge among the stuck nodes, breaking
// ties by from/to name order.
func breakCycle(edges []Relationship, stuck map[string]bool) []Relationship {
	victim := -1
	for i, e := range edges {
		if !stuck[e.From] || !stuck[e.To] {
			continue
		}
		if victim < 0 {
			victim = i
			continue
		}
		v := edges[victim]
		if e.Weight < v.Weight ||
			(e.Weight == v.Weight && (e.From < v.From || (e.From == v.From && e.To < v.To))) {
			victim = i
		}
	}
	if victim < 0 {
		// No edge within the stuck set; nothing more to do.
		return nil
	}
	out := make([]Relationship, 0, len(edges)-1)
	out = append(out, edges[:victim]...)
	out = append(out, edges[victim+1:]...)
	return out
}
