package opsdiag

import (
	"context"

	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/scope"
)

type Lifetime = scope.Scope

const (
	Singleton = scope.Singleton
	Scoped    = scope.Scoped
	Transient = scope.Transient
)

// NewScope returns a context carrying a fresh resolution scope. Scoped
// services resolved with it are shared until the context is dropped.
func NewScope(ctx context.Context) context.Context {
	return container.WithScope(ctx)
}

func HasScope(ctx context.Context) bool {
	return container.HasScope(ctx)
}
