package graph

import (
	"sort"
	"sync"
)

// Graph records declared dependencies between registry keys. Nodes keep
// their insertion order so every traversal is deterministic.
type Graph struct {
	mu    sync.RWMutex
	edges map[string][]string
	order []string
}

func New() *Graph {
	return &Graph{
		edges: make(map[string][]string),
	}
}

func (g *Graph) AddNode(id string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[id]; !exists {
		g.order = append(g.order, id)
	}
	deps := make([]string, len(dependencies))
	copy(deps, dependencies)
	g.edges[id] = deps
}

func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.edges[id]; !exists {
		return
	}
	delete(g.edges, id)
	for i, n := range g.order {
		if n == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.edges[id]
	return exists
}

func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps, exists := g.edges[id]
	if !exists {
		return nil
	}

	result := make([]string, len(deps))
	copy(result, deps)
	return result
}

func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, nodeID := range g.order {
		for _, dep := range g.edges[nodeID] {
			if dep == id {
				dependents = append(dependents, nodeID)
				break
			}
		}
	}
	return dependents
}

func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]string, len(g.order))
	copy(nodes, g.order)
	return nodes
}

func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.order)
}

func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := New()
	for _, id := range g.order {
		deps := make([]string, len(g.edges[id]))
		copy(deps, g.edges[id])
		clone.edges[id] = deps
		clone.order = append(clone.order, id)
	}
	return clone
}

// Missing returns declared dependencies that have no node, sorted.
func (g *Graph) Missing() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var missing []string
	for _, id := range g.order {
		for _, dep := range g.edges[id] {
			if _, exists := g.edges[dep]; !exists && !seen[dep] {
				missing = append(missing, dep)
				seen[dep] = true
			}
		}
	}

	sort.Strings(missing)
	return missing
}
