package graph

import "errors"

var ErrCycleDetected = errors.New("cycle detected in graph")

// TopologicalSort orders nodes so that every node follows its
// dependencies. Ties keep insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dependents := make(map[string][]string, len(g.order))
	inDegree := make(map[string]int, len(g.order))

	for _, id := range g.order {
		inDegree[id] = 0
	}
	for _, id := range g.order {
		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; exists {
				dependents[dep] = append(dependents[dep], id)
				inDegree[id]++
			}
		}
	}

	sorted := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(sorted) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || inDegree[id] != 0 {
				continue
			}
			done[id] = true
			sorted = append(sorted, id)
			for _, dependent := range dependents[id] {
				inDegree[dependent]--
			}
			progressed = true
		}
		if !progressed {
			return nil, ErrCycleDetected
		}
	}

	return sorted, nil
}

func (g *Graph) StartupOrder() ([]string, error) {
	return g.TopologicalSort()
}

func (g *Graph) ShutdownOrder() ([]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	n := len(sorted)
	reversed := make([]string, n)
	for i, v := range sorted {
		reversed[n-1-i] = v
	}
	return reversed, nil
}

// Restrict keeps the members of order that are in keep, preserving order.
func Restrict(order []string, keep map[string]bool) []string {
	out := make([]string, 0, len(keep))
	for _, id := range order {
		if keep[id] {
			out = append(out, id)
		}
	}
	return out
}
