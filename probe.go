package opsdiag

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/danpasecinic/opsdiag/internal/reflect"
)

// Prober realizes shapes and service factories with every failure, panics
// included, turned into data.
type Prober struct {
	logger *slog.Logger
	clock  clock.Clock
	hooks  []ProbeHook
}

func NewProber(logger *slog.Logger, clk clock.Clock, hooks ...ProbeHook) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Prober{logger: logger, clock: clk, hooks: hooks}
}

// FactoryProbe is the outcome of invoking one service factory. Missing is
// set when the failure was recognized as an unregistered dependency.
type FactoryProbe struct {
	TypeName string
	Missing  string
	Err      error
}

func (f FactoryProbe) OK() bool {
	return f.Err == nil
}

func (p *Prober) ProbeShape(ctx context.Context, s Shape) BindingProbeResult {
	result := BindingProbeResult{ShapeName: s.Name}
	if s.Open() {
		result.Error = "shape has unresolved type parameters"
		return result
	}

	start := p.clock.Now()
	value, err := p.contain(s.Name, func() (any, error) {
		return s.Bind(ctx)
	})
	p.observe(ProbeKindShape, s.Name, err == nil, p.clock.Since(start), err)

	if err != nil {
		p.logger.Debug("option binding failed", "shape", s.Name, "family", s.Family, "error", err)
		result.Error = err.Error()
		return result
	}

	result.IsValid = true
	result.Value = value
	return result
}

func (p *Prober) ProbeFactory(ctx context.Context, reg ServiceRegistration) FactoryProbe {
	var probe FactoryProbe
	if reg.Factory == nil {
		return probe
	}

	start := p.clock.Now()
	value, err := p.contain(reg.ServiceType, func() (any, error) {
		return reg.Factory(ctx)
	})
	p.observe(ProbeKindService, reg.ServiceType, err == nil, p.clock.Since(start), err)

	if err != nil {
		probe.Err = err
		if name, ok := MissingDependency(err); ok {
			probe.Missing = name
			p.logger.Debug("missing registration", "service", reg.ServiceType, "missing", name)
		} else {
			p.logger.Warn("service factory failed", "service", reg.ServiceType, "error", err)
		}
		return probe
	}

	if !reflect.IsNil(value) {
		probe.TypeName = reflect.DisplayNameOf(value)
	}
	return probe
}

func (p *Prober) contain(target string, fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = errProbePanicked(target, r)
		}
	}()
	return fn()
}

func (p *Prober) observe(kind ProbeKind, name string, valid bool, d time.Duration, err error) {
	for _, hook := range p.hooks {
		hook(kind, name, valid, d, err)
	}
}

var missingServicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`No service for type '([\w.*/\[\]#-]+)'`),
	regexp.MustCompile(`service not found: ([\w.*/\[\]#-]+)`),
}

type missingDependencyError interface {
	MissingDependency() string
}

// MissingDependency reports whether err means a dependency had no
// registration, and names it. Errors carrying the name in structured form
// win; the message grammars of common resolvers are the fallback.
func MissingDependency(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if name := structuredMissing(err); name != "" {
		return reflect.DisplayName(name), true
	}

	msg := err.Error()
	for _, re := range missingServicePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return reflect.DisplayName(m[1]), true
		}
	}
	return "", false
}

func structuredMissing(err error) string {
	if err == nil {
		return ""
	}
	if md, ok := err.(missingDependencyError); ok {
		if name := md.MissingDependency(); name != "" {
			return name
		}
	}

	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return structuredMissing(x.Unwrap())
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if name := structuredMissing(inner); name != "" {
				return name
			}
		}
	}
	return ""
}
