// Package opsdiag gives a running Go service a view of its own wiring: which
// configuration sections bind, which services can actually be constructed,
// which background workers run, and what its caches hold.
//
// An Engine owns a service registry, an options binder and a cache list.
// Reports walk those registries, probe each entry with every failure
// contained, and fold the outcomes into plain data that the opshttp package
// serves and the health runner classifies.
//
// # Quick Start
//
//	e := opsdiag.New(opsdiag.WithLogger(logger))
//
//	opsdiag.Configure[DatabaseOptions](e, "database")
//
//	opsdiag.Provide(e, func(ctx context.Context, r opsdiag.Resolver) (*Database, error) {
//	    opts, err := opsdiag.Resolve[opsdiag.Options[DatabaseOptions]](ctx, r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return OpenDatabase(opts.Value())
//	})
//
//	e.Run(ctx)
//
// # Services
//
// Services are registered by type:
//
//	opsdiag.Provide[T](e, provider)            // factory
//	opsdiag.ProvideValue[T](e, value)          // existing instance
//	opsdiag.Bind[Repository, *SQLRepo](e)      // type-only binding
//	opsdiag.ProvideWorker[*Poller](e, prov)    // background worker
//
// Lifetimes are Singleton (default), Scoped and Transient:
//
//	opsdiag.Provide(e, NewRequestLog, opsdiag.WithLifetime(opsdiag.Scoped))
//	ctx = opsdiag.NewScope(ctx)
//
// Inside a provider, resolve through the Resolver argument so the nested
// resolution shares the caller's scope and cycle tracking:
//
//	db := opsdiag.MustResolve[*Database](ctx, r)
//
// # Options
//
// Configure binds a section of the engine's config.Store into T and registers
// three wrappers, each with its own option shape:
//
//	opsdiag.Options[T]   // bound once
//	opsdiag.Snapshot[T]  // bound once per scope
//	*opsdiag.Monitor[T]  // re-bound when the store changes
//
// Binding is lazy. A section that fails to bind shows up in the options
// report and the options health check, not as a startup panic.
//
// # Reports
//
//	e.OptionsReport(ctx)         // per binding family, invalid shapes first
//	e.ServicesReport(ctx)        // every registration, plus missing dependencies
//	e.HostedServicesReport(ctx)  // running workers
//	e.CachesReport()             // managed and unmanaged caches, process memory
//	e.FeaturesReport(ctx)        // FeatureToggle option payloads
//	e.EnvironmentReport()        // host, process, runtime, redacted configuration
//
// The services report invokes every factory once in a fresh scope. When a
// factory fails because a dependency has no registration, the dependency's
// name lands in MissingRegistrations. Other failures are only logged.
//
// # Health
//
// The engine registers two checks, "options" and "services", tagged
// "startup" and "diagnostics". Options binding errors are Unhealthy; missing
// registrations are Degraded.
//
//	report := e.CheckHealth(ctx, opsdiag.HasAllTags("diagnostics"))
//	live := e.CheckHealth(ctx, opsdiag.NoChecks)
//
// Start runs the startup checks first and refuses to start any worker when
// one of them is Unhealthy.
//
// # Observers
//
//	obs, _ := opsdiag.NewPrometheusObserver(prometheus.DefaultRegisterer)
//	e := opsdiag.New(opsdiag.WithProbeObserver(obs.Hook()))
//
// # Debug Visualization
//
//	e.PrintGraph()
//	e.FprintGraphDOT(w)
package opsdiag
