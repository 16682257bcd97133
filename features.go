package opsdiag

import (
	"context"
	goreflect "reflect"

	"github.com/danpasecinic/opsdiag/internal/reflect"
)

// FeatureToggle is implemented by option payloads that switch a feature on
// or off.
type FeatureToggle interface {
	FeatureEnabled() bool
}

type FeaturesReport struct {
	Registered    map[string]bool `json:"registered"`
	Unregistered  []string        `json:"unregistered"`
	Indeterminate []string        `json:"indeterminate"`
}

type featureDecl struct {
	name string
	key  string
	bind BindFunc
}

var featureToggleType = goreflect.TypeOf((*FeatureToggle)(nil)).Elem()

// DeclareFeature makes T known to the features report even when it is never
// configured or provided.
func DeclareFeature[T FeatureToggle](e *Engine) {
	e.addFeature(featureDecl{name: reflect.TypeName[T](), key: reflect.TypeKey[T]()})
}

func isFeature[T any]() bool {
	t := reflect.TypeOf[T]()
	return t.Implements(featureToggleType) || goreflect.PointerTo(t).Implements(featureToggleType)
}

func (e *Engine) addFeature(decl featureDecl) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.features {
		if e.features[i].name == decl.name {
			if decl.bind != nil {
				e.features[i].bind = decl.bind
			}
			return
		}
	}
	e.features = append(e.features, decl)
}

// FeaturesReport reports every known feature: configured or provided ones
// with their state, declared ones nobody supplies, and ones whose value
// could not be obtained.
func (e *Engine) FeaturesReport(ctx context.Context) FeaturesReport {
	e.mu.RLock()
	decls := make([]featureDecl, len(e.features))
	copy(decls, e.features)
	e.mu.RUnlock()

	report := FeaturesReport{
		Registered:    make(map[string]bool),
		Unregistered:  []string{},
		Indeterminate: []string{},
	}

	for _, decl := range decls {
		var fetch func() (any, error)
		switch {
		case decl.bind != nil:
			fetch = func() (any, error) { return decl.bind(ctx) }
		case e.internal.Has(decl.key):
			fetch = func() (any, error) { return e.internal.Resolve(NewScope(ctx), decl.key) }
		default:
			report.Unregistered = append(report.Unregistered, decl.name)
			continue
		}

		value, err := e.prober.contain(decl.name, fetch)
		if err != nil {
			e.config.logger.Debug("feature unavailable", "feature", decl.name, "error", err)
			report.Indeterminate = append(report.Indeterminate, decl.name)
			continue
		}

		toggle, ok := asToggle(value)
		if !ok {
			report.Indeterminate = append(report.Indeterminate, decl.name)
			continue
		}
		report.Registered[decl.name] = toggle.FeatureEnabled()
	}

	return report
}

func asToggle(v any) (FeatureToggle, bool) {
	if reflect.IsNil(v) {
		return nil, false
	}
	if t, ok := v.(FeatureToggle); ok {
		return t, true
	}

	ptr := goreflect.New(goreflect.TypeOf(v))
	ptr.Elem().Set(goreflect.ValueOf(v))
	t, ok := ptr.Interface().(FeatureToggle)
	return t, ok
}
