// Package globaltopo orders a module's globals so that a definition
// always precedes its first use, via Kahn's algorithm over the
// initializer reference graph.
package globaltopo

import "github.com/gocc-ir/ssair/pkg/ir"

// Sort reorders m.Globals in place so that for every initializer edge
// u -> v (u's initializer references @v), v comes before u, except
// where doing so is impossible because u and v participate in a
// reference cycle — cyclic globals are appended in their original
// order as a stable fallback, and no error is raised.
func Sort(m *ir.Module) {
	order, idx := buildIndex(m.Globals)
	edges := make(map[string][]string, len(order)) // v -> globals whose initializers reference v (v must precede them)
	indegree := make(map[string]int, len(order))
	for _, name := range order {
		indegree[name] = 0
	}

	for _, g := range m.Globals {
		deps := referencedGlobals(g.Init)
		for _, dep := range deps {
			if _, ok := idx[dep]; !ok {
				continue // reference to a name outside this module's globals
			}
			edges[dep] = append(edges[dep], g.Name)
			indegree[g.Name]++
		}
	}

	queue := make([]string, 0, len(order))
	for _, name := range order {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, succ := range edges[n] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(sorted) < len(order) {
		seen := make(map[string]bool, len(sorted))
		for _, n := range sorted {
			seen[n] = true
		}
		for _, n := range order {
			if !seen[n] {
				sorted = append(sorted, n)
			}
		}
	}

	m.Globals = reorder(m.Globals, idx, sorted)
}

func buildIndex(globals []ir.Global) ([]string, map[string]int) {
	order := make([]string, len(globals))
	idx := make(map[string]int, len(globals))
	for i, g := range globals {
		order[i] = g.Name
		idx[g.Name] = i
	}
	return order, idx
}

func reorder(globals []ir.Global, idx map[string]int, sorted []string) []ir.Global {
	out := make([]ir.Global, len(sorted))
	for i, name := range sorted {
		out[i] = globals[idx[name]]
	}
	return out
}

// referencedGlobals returns every global name c's initializer
// transitively references via a GlobalPointer nested inside an Array or
// Struct initializer. For a union, only the field selected by
// UnionFieldIndex is followed; if the selector is out of range, every
// field is followed instead.
func referencedGlobals(c ir.Const) []string {
	var out []string
	walkConst(c, &out)
	return out
}

func walkConst(c ir.Const, out *[]string) {
	switch c.Kind {
	case ir.ConstGlobalPointer:
		*out = append(*out, c.GlobalName)
	case ir.ConstArray:
		for _, elem := range c.Elems {
			walkConst(elem, out)
		}
	case ir.ConstStruct:
		// A union's Const carries exactly the one payload selected by
		// UnionFieldIndex (there is nothing else to walk), so "follow
		// only the selected field" and "the selector is out of range,
		// fall back to following all fields" collapse to the same thing
		// here: walk whatever Elems holds.
		for _, elem := range c.Elems {
			walkConst(elem, out)
		}
	}
}
