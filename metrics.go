package opsdiag

import (
	"time"
)

type ResolveHook func(key string, duration time.Duration, err error)

type ProvideHook func(key string)

type StartHook func(key string, duration time.Duration, err error)

type StopHook func(key string, duration time.Duration, err error)

type ProbeKind string

const (
	ProbeKindShape   ProbeKind = "shape"
	ProbeKindService ProbeKind = "service"
)

// ProbeHook observes every probe. valid is false for any failure, including
// recognized missing dependencies.
type ProbeHook func(kind ProbeKind, name string, valid bool, duration time.Duration, err error)
