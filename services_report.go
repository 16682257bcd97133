package opsdiag

import (
	"context"
	"sort"

	"github.com/danpasecinic/opsdiag/internal/reflect"
)

// BuildServicesReport describes every registration of src. Each factory is
// invoked once in a fresh resolution scope; dependencies it could not find
// are collected in MissingRegistrations.
func BuildServicesReport(ctx context.Context, src ServiceSource, p *Prober) ServiceReport {
	if p == nil {
		p = NewProber(nil, nil)
	}

	regs := EnumerateServiceRegistrations(src)
	missing := make(map[string]struct{})
	report := ServiceReport{Entries: make([]ServiceReportEntry, 0, len(regs))}

	for _, reg := range regs {
		entry := ServiceReportEntry{
			ServiceType:        reg.ServiceType,
			Lifetime:           reg.Lifetime,
			ImplementationType: reg.ImplementationType,
		}
		if !reflect.IsNil(reg.Instance) {
			entry.ImplementationInstance = reflect.DisplayNameOf(reg.Instance)
		}

		if reg.Factory != nil {
			probe := p.ProbeFactory(NewScope(ctx), reg)
			entry.ImplementationFactory = probe.TypeName
			if probe.Missing != "" {
				missing[probe.Missing] = struct{}{}
			}
		}

		report.Entries = append(report.Entries, entry)
	}

	report.MissingRegistrations = make([]string, 0, len(missing))
	for name := range missing {
		report.MissingRegistrations = append(report.MissingRegistrations, name)
	}
	sort.Strings(report.MissingRegistrations)

	return report
}

// MissingRegistrationDetails maps each missing name to the first entry
// registered under that service type, or nil.
func MissingRegistrationDetails(report ServiceReport) map[string]*ServiceReportEntry {
	out := make(map[string]*ServiceReportEntry, len(report.MissingRegistrations))
	for _, name := range report.MissingRegistrations {
		out[name] = nil
		for i := range report.Entries {
			if report.Entries[i].ServiceType == name {
				entry := report.Entries[i]
				out[name] = &entry
				break
			}
		}
	}
	return out
}

func (e *Engine) ServicesReport(ctx context.Context) ServiceReport {
	return BuildServicesReport(ctx, e, e.prober)
}
