package opsdiag

import (
	"context"
	"sort"

	"github.com/danpasecinic/opsdiag/internal/reflect"
)

// BuildOptionsReport probes every closed shape of src, grouped by binding
// family. One failing shape never hides the others.
func BuildOptionsReport(ctx context.Context, src ShapeSource, p *Prober) OptionsReport {
	if p == nil {
		p = NewProber(nil, nil)
	}

	groups := make(map[string][]Shape)
	seen := make(map[string]bool)
	for _, s := range EnumerateOptionShapes(src) {
		scope := reflect.Family(s.Family)
		if _, ok := groups[scope]; !ok {
			groups[scope] = nil
		}

		id := s.Family + "\x00" + s.Name
		if s.Open() || seen[id] {
			continue
		}
		seen[id] = true
		groups[scope] = append(groups[scope], s)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	report := OptionsReport{Scopes: make([]OptionScopeReport, 0, len(names))}
	for _, name := range names {
		scope := OptionScopeReport{
			Scope:   name,
			Results: make([]BindingProbeResult, 0, len(groups[name])),
		}
		for _, s := range groups[name] {
			scope.Results = append(scope.Results, p.ProbeShape(ctx, s))
		}
		sortResults(scope.Results)

		for _, r := range scope.Results {
			if !r.IsValid {
				scope.HasErrors = true
				break
			}
		}
		report.HasErrors = report.HasErrors || scope.HasErrors
		report.Scopes = append(report.Scopes, scope)
	}

	return report
}

func sortResults(results []BindingProbeResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].IsValid != results[j].IsValid {
			return !results[i].IsValid
		}
		return results[i].ShapeName < results[j].ShapeName
	})
}

func (e *Engine) OptionsReport(ctx context.Context) OptionsReport {
	return BuildOptionsReport(ctx, e, e.prober)
}
