// Package opstest wraps an opsdiag.Engine with helpers that fail the test
// instead of returning errors.
package opstest

import (
	"context"
	"io"
	"log/slog"

	"github.com/danpasecinic/opsdiag"
	"github.com/danpasecinic/opsdiag/internal/reflect"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

type TestEngine struct {
	*opsdiag.Engine
	tb TB
}

// New returns an engine that logs nowhere and is stopped when the test
// ends. Options passed in override the quiet logger.
func New(tb TB, opts ...opsdiag.Option) *TestEngine {
	tb.Helper()

	quiet := opsdiag.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := opsdiag.New(append([]opsdiag.Option{quiet}, opts...)...)
	te := &TestEngine{
		Engine: e,
		tb:     tb,
	}

	tb.Cleanup(func() {
		if err := e.Stop(context.Background()); err != nil {
			tb.Fatalf("failed to stop engine: %v", err)
		}
	})

	return te
}

func (te *TestEngine) RequireStart(ctx context.Context) {
	te.tb.Helper()

	if err := te.Start(ctx); err != nil {
		te.tb.Fatalf("failed to start engine: %v", err)
	}
}

func (te *TestEngine) RequireStop(ctx context.Context) {
	te.tb.Helper()

	if err := te.Stop(ctx); err != nil {
		te.tb.Fatalf("failed to stop engine: %v", err)
	}
}

func (te *TestEngine) RequireValidate() {
	te.tb.Helper()

	if err := te.Validate(); err != nil {
		te.tb.Fatalf("engine validation failed: %v", err)
	}
}

// RequireStatus runs the selected health checks and fails unless the
// aggregate status is want.
func (te *TestEngine) RequireStatus(ctx context.Context, predicate opsdiag.Predicate, want opsdiag.HealthStatus) opsdiag.HealthReport {
	te.tb.Helper()

	report := te.CheckHealth(ctx, predicate)
	if report.Status != want {
		te.tb.Fatalf(
			"expected health %s, got %s (unhealthy: %v, degraded: %v)",
			want, report.Status, report.Failing(opsdiag.Unhealthy), report.Failing(opsdiag.Degraded),
		)
	}
	return report
}

func (te *TestEngine) RequireHealthy(ctx context.Context) opsdiag.HealthReport {
	te.tb.Helper()
	return te.RequireStatus(ctx, opsdiag.AllChecks, opsdiag.Healthy)
}

func (te *TestEngine) RequireOptionsValid(ctx context.Context) {
	te.tb.Helper()

	report := te.OptionsReport(ctx)
	if !report.HasErrors {
		return
	}
	for _, scope := range report.Scopes {
		for _, r := range scope.Results {
			if !r.IsValid {
				te.tb.Fatalf("options %s in %s failed to bind: %s", r.ShapeName, scope.Scope, r.Error)
				return
			}
		}
	}
}

func (te *TestEngine) RequireNoMissing(ctx context.Context) {
	te.tb.Helper()

	if missing := te.ServicesReport(ctx).MissingRegistrations; len(missing) > 0 {
		te.tb.Fatalf("missing registrations: %v", missing)
	}
}

// SetConfig writes a value into the engine's config store.
func (te *TestEngine) SetConfig(path string, value any) {
	te.Store().Set(path, value)
}

func AssertHas[T any](te *TestEngine) {
	te.tb.Helper()

	if !opsdiag.Has[T](te.Engine) {
		te.tb.Fatalf("expected engine to have %s", reflect.TypeName[T]())
	}
}

func AssertHasNamed[T any](te *TestEngine, name string) {
	te.tb.Helper()

	if !opsdiag.HasNamed[T](te.Engine, name) {
		te.tb.Fatalf("expected engine to have %s", reflect.DisplayName(reflect.TypeKeyNamed[T](name)))
	}
}

func AssertNotHas[T any](te *TestEngine) {
	te.tb.Helper()

	if opsdiag.Has[T](te.Engine) {
		te.tb.Fatalf("expected engine to not have %s", reflect.TypeName[T]())
	}
}

func MustInvoke[T any](te *TestEngine) T {
	te.tb.Helper()

	v, err := opsdiag.Invoke[T](te.Engine)
	if err != nil {
		te.tb.Fatalf("failed to invoke %s: %v", reflect.TypeName[T](), err)
	}
	return v
}

func MustInvokeNamed[T any](te *TestEngine, name string) T {
	te.tb.Helper()

	v, err := opsdiag.InvokeNamed[T](te.Engine, name)
	if err != nil {
		te.tb.Fatalf("failed to invoke %s: %v", reflect.DisplayName(reflect.TypeKeyNamed[T](name)), err)
	}
	return v
}

func MustProvide[T any](te *TestEngine, provider opsdiag.Provider[T], opts ...opsdiag.ProviderOption) {
	te.tb.Helper()

	if err := opsdiag.Provide(te.Engine, provider, opts...); err != nil {
		te.tb.Fatalf("failed to provide %s: %v", reflect.TypeName[T](), err)
	}
}

func MustProvideValue[T any](te *TestEngine, value T, opts ...opsdiag.ProviderOption) {
	te.tb.Helper()

	if err := opsdiag.ProvideValue(te.Engine, value, opts...); err != nil {
		te.tb.Fatalf("failed to provide value %s: %v", reflect.TypeName[T](), err)
	}
}

func MustProvideNamedValue[T any](te *TestEngine, name string, value T, opts ...opsdiag.ProviderOption) {
	te.tb.Helper()

	if err := opsdiag.ProvideNamedValue(te.Engine, name, value, opts...); err != nil {
		te.tb.Fatalf("failed to provide value %s: %v", reflect.DisplayName(reflect.TypeKeyNamed[T](name)), err)
	}
}

func MustProvideWorker[T opsdiag.Worker](te *TestEngine, provider opsdiag.Provider[T], opts ...opsdiag.ProviderOption) {
	te.tb.Helper()

	if err := opsdiag.ProvideWorker(te.Engine, provider, opts...); err != nil {
		te.tb.Fatalf("failed to provide worker %s: %v", reflect.TypeName[T](), err)
	}
}

func MustConfigure[T any](te *TestEngine, section string) {
	te.tb.Helper()

	if err := opsdiag.Configure[T](te.Engine, section); err != nil {
		te.tb.Fatalf("failed to configure %s: %v", reflect.TypeName[T](), err)
	}
}
