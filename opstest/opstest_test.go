package opstest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/danpasecinic/opsdiag"
	"github.com/danpasecinic/opsdiag/opstest"
)

type Config struct {
	Port int
	Host string
}

type ServerOptions struct {
	Port int `config:"port"`
}

func (o ServerOptions) Validate() error {
	if o.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

type Repo struct{}

type Store struct{}

type Ticker struct {
	started, stopped bool
}

func (t *Ticker) Start(context.Context) error {
	t.started = true
	return nil
}

func (t *Ticker) Stop(context.Context) error {
	t.stopped = true
	return nil
}

type fakeTB struct {
	failures []string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Fatal(args ...any) {
	f.failures = append(f.failures, fmt.Sprint(args...))
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failures = append(f.failures, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func TestNew(t *testing.T) {
	t.Parallel()

	te := opstest.New(t)
	if te == nil {
		t.Fatal("New() returned nil")
	}
	te.RequireHealthy(context.Background())
}

func TestMustProvideAndInvoke(t *testing.T) {
	t.Parallel()

	te := opstest.New(t)
	opstest.MustProvideValue(te, &Config{Port: 8080})
	opstest.MustProvide(
		te, func(ctx context.Context, r opsdiag.Resolver) (*Repo, error) {
			return &Repo{}, nil
		},
	)
	opstest.MustProvideNamedValue(te, "replica", &Config{Port: 9090})

	opstest.AssertHas[*Config](te)
	opstest.AssertHas[*Repo](te)
	opstest.AssertHasNamed[*Config](te, "replica")
	opstest.AssertNotHas[*Store](te)

	if got := opstest.MustInvoke[*Config](te).Port; got != 8080 {
		t.Errorf("expected port 8080, got %d", got)
	}
	if got := opstest.MustInvokeNamed[*Config](te, "replica").Port; got != 9090 {
		t.Errorf("expected port 9090, got %d", got)
	}
	te.RequireValidate()
	te.RequireNoMissing(context.Background())
}

func TestMustConfigure(t *testing.T) {
	t.Parallel()

	te := opstest.New(t)
	te.SetConfig("server.port", 8080)
	opstest.MustConfigure[ServerOptions](te, "server")

	ctx := context.Background()
	te.RequireOptionsValid(ctx)
	te.RequireHealthy(ctx)

	opts := opstest.MustInvoke[opsdiag.Options[ServerOptions]](te)
	if opts.Value().Port != 8080 {
		t.Errorf("expected port 8080, got %d", opts.Value().Port)
	}
}

func TestRequireStartStop(t *testing.T) {
	t.Parallel()

	te := opstest.New(t)
	ticker := &Ticker{}
	opstest.MustProvideWorker(
		te, func(context.Context, opsdiag.Resolver) (*Ticker, error) {
			return ticker, nil
		},
	)

	ctx := context.Background()
	te.RequireStart(ctx)
	if !ticker.started {
		t.Error("expected ticker to be started")
	}

	te.RequireStop(ctx)
	if !ticker.stopped {
		t.Error("expected ticker to be stopped")
	}
}

func TestRequireFailures(t *testing.T) {
	t.Parallel()

	tb := &fakeTB{}
	te := opstest.New(tb)
	opstest.MustConfigure[ServerOptions](te, "server")
	opstest.MustProvide(
		te, func(ctx context.Context, r opsdiag.Resolver) (*Repo, error) {
			if _, err := opsdiag.Resolve[*Store](ctx, r); err != nil {
				return nil, err
			}
			return &Repo{}, nil
		},
	)
	if len(tb.failures) != 0 {
		t.Fatalf("unexpected failures: %v", tb.failures)
	}

	ctx := context.Background()
	te.RequireOptionsValid(ctx)
	te.RequireNoMissing(ctx)
	te.RequireStatus(ctx, opsdiag.HasAllTags(opsdiag.TagDiagnostics), opsdiag.Healthy)
	te.RequireStart(ctx)
	opstest.AssertHas[*Store](te)
	opstest.MustProvideValue(te, &Repo{})

	if len(tb.failures) != 6 {
		t.Fatalf("expected 6 failures, got %d: %v", len(tb.failures), tb.failures)
	}
	if len(tb.cleanups) != 1 {
		t.Fatalf("expected 1 cleanup, got %d", len(tb.cleanups))
	}
}
