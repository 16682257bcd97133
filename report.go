package opsdiag

import (
	"context"
	"reflect"
)

// BindFunc binds a fresh instance of an option shape.
type BindFunc func(ctx context.Context) (any, error)

// Shape is one bindable configuration type: a payload under a binding
// mechanism family such as Options[T] or Snapshot[T]. A shape without a
// payload type or binder is open and cannot be probed.
type Shape struct {
	Family  string
	Name    string
	Payload reflect.Type
	Bind    BindFunc
}

func (s Shape) Open() bool {
	return s.Payload == nil || s.Bind == nil
}

// ServiceRegistration is a read-only view of one registry entry. At most
// one of ImplementationType, Instance and Factory is set.
type ServiceRegistration struct {
	Key                string
	ServiceType        string
	ImplementationType string
	Instance           any
	Factory            func(ctx context.Context) (any, error)
	Lifetime           Lifetime
	Hosted             bool
}

type ShapeSource interface {
	OptionShapes() []Shape
}

type ServiceSource interface {
	ServiceRegistrations() []ServiceRegistration
	Resolve(ctx context.Context, key string) (any, error)
}

type Registry interface {
	ShapeSource
	ServiceSource
}

type CacheSource interface {
	Caches() []any
}

// CacheSizer is implemented by caches that report their own size.
// SizeLimitBytes returns 0 when the cache is unbounded.
type CacheSizer interface {
	KeyCount() int64
	SizeBytes() int64
	SizeLimitBytes() int64
}

type BindingProbeResult struct {
	ShapeName string `json:"shapeName"`
	IsValid   bool   `json:"isValid"`
	Value     any    `json:"value,omitempty"`
	Error     string `json:"error,omitempty"`
}

type OptionScopeReport struct {
	Scope     string               `json:"scope"`
	HasErrors bool                 `json:"hasErrors"`
	Results   []BindingProbeResult `json:"results"`
}

type OptionsReport struct {
	HasErrors bool                `json:"hasErrors"`
	Scopes    []OptionScopeReport `json:"scopes"`
}

type ServiceReportEntry struct {
	ServiceType            string   `json:"serviceType"`
	Lifetime               Lifetime `json:"lifetime"`
	ImplementationType     string   `json:"implementationType,omitempty"`
	ImplementationInstance string   `json:"implementationInstance,omitempty"`
	ImplementationFactory  string   `json:"implementationFactory,omitempty"`
}

type ServiceReport struct {
	MissingRegistrations []string             `json:"missingRegistrations"`
	Entries              []ServiceReportEntry `json:"entries"`
}

type HostedServicesReport struct {
	Services []string `json:"services"`
}
