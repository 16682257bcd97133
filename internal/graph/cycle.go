package graph

const (
	white = iota
	gray
	black
)

func (g *Graph) HasCycle() bool {
	return g.FindCycle() != nil
}

// FindCycle returns the first cycle reachable in insertion order as a path
// that starts and ends on the same node, or nil.
func (g *Graph) FindCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	color := make(map[string]int, len(g.order))
	for _, id := range g.order {
		if color[id] != white {
			continue
		}
		if cycle := g.visit(id, color, nil); cycle != nil {
			return cycle
		}
	}
	return nil
}

// CycleThrough returns a cycle reachable from start, or nil.
func (g *Graph) CycleThrough(start string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, exists := g.edges[start]; !exists {
		return nil
	}
	return g.visit(start, make(map[string]int, len(g.order)), nil)
}

func (g *Graph) visit(id string, color map[string]int, path []string) []string {
	color[id] = gray
	path = append(path, id)

	for _, dep := range g.edges[id] {
		if _, exists := g.edges[dep]; !exists {
			continue
		}
		switch color[dep] {
		case gray:
			for i, p := range path {
				if p == dep {
					cycle := make([]string, 0, len(path)-i+1)
					cycle = append(cycle, path[i:]...)
					return append(cycle, dep)
				}
			}
		case white:
			if cycle := g.visit(dep, color, path); cycle != nil {
				return cycle
			}
		}
	}

	color[id] = black
	return nil
}
