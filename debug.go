package opsdiag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/danpasecinic/opsdiag/internal/reflect"
)

type GraphInfo struct {
	Services []ServiceInfo `json:"services"`
}

type ServiceInfo struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies,omitempty"`
	Dependents   []string `json:"dependents,omitempty"`
	Lifetime     Lifetime `json:"lifetime"`
	Hosted       bool     `json:"hosted,omitempty"`
}

// Graph describes the declared dependency graph, sorted by key.
func (e *Engine) Graph() GraphInfo {
	g := e.internal.Graph()
	entries := e.internal.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	services := make([]ServiceInfo, 0, len(entries))
	for _, entry := range entries {
		services = append(
			services, ServiceInfo{
				Key:          entry.Key,
				Name:         reflect.DisplayName(entry.Key),
				Dependencies: displayNames(g.Dependencies(entry.Key)),
				Dependents:   displayNames(g.Dependents(entry.Key)),
				Lifetime:     entry.Scope,
				Hosted:       entry.Hosted,
			},
		)
	}

	return GraphInfo{Services: services}
}

func (e *Engine) PrintGraph() {
	e.FprintGraph(os.Stdout)
}

func (e *Engine) FprintGraph(w io.Writer) {
	info := e.Graph()

	if len(info.Services) == 0 {
		_, _ = fmt.Fprintln(w, "(empty engine)")
		return
	}

	for _, svc := range info.Services {
		marker := "○"
		if svc.Hosted {
			marker = "●"
		}

		if len(svc.Dependencies) == 0 {
			_, _ = fmt.Fprintf(w, "%s %s (%s)\n", marker, svc.Name, svc.Lifetime)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s (%s) ← %s\n", marker, svc.Name, svc.Lifetime, strings.Join(svc.Dependencies, ", "))
		}
	}
}

func (e *Engine) SprintGraph() string {
	var sb strings.Builder
	e.FprintGraph(&sb)
	return sb.String()
}

func (e *Engine) FprintGraphDOT(w io.Writer) {
	info := e.Graph()

	_, _ = fmt.Fprintln(w, "digraph dependencies {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for _, svc := range info.Services {
		style := ""
		if svc.Hosted {
			style = ", style=filled, fillcolor=lightblue"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", svc.Name, escapeLabel(svc.Name), style)
	}

	_, _ = fmt.Fprintln(w)

	for _, svc := range info.Services {
		for _, dep := range svc.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", svc.Name, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func (e *Engine) SprintGraphDOT() string {
	var sb strings.Builder
	e.FprintGraphDOT(&sb)
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "*", "")
}
