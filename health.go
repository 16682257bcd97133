package opsdiag

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	TagStartup     = "startup"
	TagDiagnostics = "diagnostics"
)

// HealthStatus orders from worst to best, so the aggregate of several
// statuses is their minimum.
type HealthStatus int

const (
	Unhealthy HealthStatus = iota
	Degraded
	Healthy
)

var healthStatusNames = map[HealthStatus]string{
	Unhealthy: "Unhealthy",
	Degraded:  "Degraded",
	Healthy:   "Healthy",
}

func (s HealthStatus) String() string {
	if name, ok := healthStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("HealthStatus(%d)", int(s))
}

func (s HealthStatus) MarshalText() ([]byte, error) {
	if _, ok := healthStatusNames[s]; !ok {
		return nil, fmt.Errorf("unknown health status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *HealthStatus) UnmarshalText(text []byte) error {
	for status, name := range healthStatusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown health status %q", text)
}

// HealthStatuses lists every status, worst first.
func HealthStatuses() []HealthStatus {
	return []HealthStatus{Unhealthy, Degraded, Healthy}
}

type HealthVerdict struct {
	Status      HealthStatus   `json:"status"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fault       error          `json:"-"`
}

func faulted(description string, err error) HealthVerdict {
	return HealthVerdict{
		Status:      Unhealthy,
		Description: description,
		Error:       err.Error(),
		Fault:       err,
	}
}

// ClassifyOptions is Unhealthy when any option shape failed to bind. Data
// maps each failing scope to its results.
func ClassifyOptions(report OptionsReport) HealthVerdict {
	if !report.HasErrors {
		return HealthVerdict{
			Status:      Healthy,
			Description: "options configuration binds correctly",
		}
	}

	data := make(map[string]any)
	for _, scope := range report.Scopes {
		if scope.HasErrors {
			data[scope.Scope] = scope.Results
		}
	}
	return HealthVerdict{
		Status:      Unhealthy,
		Description: "options configuration has one or more binding errors",
		Data:        data,
	}
}

// ClassifyServices is Degraded when any factory depends on an unregistered
// service. Data maps each missing name to its registration, if any.
func ClassifyServices(report ServiceReport) HealthVerdict {
	if len(report.MissingRegistrations) == 0 {
		return HealthVerdict{
			Status:      Healthy,
			Description: "service registry is correctly configured",
		}
	}

	data := make(map[string]any, len(report.MissingRegistrations))
	for name, entry := range MissingRegistrationDetails(report) {
		if entry == nil {
			data[name] = nil
			continue
		}
		data[name] = *entry
	}
	return HealthVerdict{
		Status:      Degraded,
		Description: "service registry has a missing registration",
		Data:        data,
	}
}

type HealthCheck func(ctx context.Context) HealthVerdict

func OptionsHealthCheck(src ShapeSource, p *Prober) HealthCheck {
	return func(ctx context.Context) (verdict HealthVerdict) {
		defer func() {
			if r := recover(); r != nil {
				verdict = faulted("options health check faulted", errReportFaulted("options", panicError(r)))
			}
		}()
		return ClassifyOptions(BuildOptionsReport(ctx, src, p))
	}
}

func ServicesHealthCheck(src ServiceSource, p *Prober) HealthCheck {
	return func(ctx context.Context) (verdict HealthVerdict) {
		defer func() {
			if r := recover(); r != nil {
				verdict = faulted("services health check faulted", errReportFaulted("services", panicError(r)))
			}
		}()
		return ClassifyServices(BuildServicesReport(ctx, src, p))
	}
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

type HealthRegistration struct {
	Name  string
	Tags  []string
	Check HealthCheck
}

// Predicate selects the health checks a run includes.
type Predicate func(reg HealthRegistration) bool

func AllChecks(HealthRegistration) bool { return true }

func NoChecks(HealthRegistration) bool { return false }

func HasAllTags(tags ...string) Predicate {
	return func(reg HealthRegistration) bool {
		for _, tag := range tags {
			if !slices.Contains(reg.Tags, tag) {
				return false
			}
		}
		return true
	}
}

func WithoutTag(tag string) Predicate {
	return func(reg HealthRegistration) bool {
		return !slices.Contains(reg.Tags, tag)
	}
}

func (p Predicate) And(other Predicate) Predicate {
	return func(reg HealthRegistration) bool {
		return p(reg) && other(reg)
	}
}

type HealthEntry struct {
	HealthVerdict
	Duration string        `json:"duration"`
	Tags     []string      `json:"tags,omitempty"`
	Elapsed  time.Duration `json:"-"`
}

type HealthReport struct {
	ID            string                 `json:"id"`
	Status        HealthStatus           `json:"status"`
	TotalDuration string                 `json:"totalDuration"`
	Entries       map[string]HealthEntry `json:"entries"`
}

// Failing returns the names of entries with the given status, sorted.
func (r HealthReport) Failing(status HealthStatus) []string {
	var names []string
	for name, entry := range r.Entries {
		if entry.Status == status {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type HealthRunner struct {
	mu     sync.RWMutex
	checks []HealthRegistration
	logger *slog.Logger
	clock  clock.Clock
}

func NewHealthRunner(logger *slog.Logger, clk clock.Clock) *HealthRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &HealthRunner{logger: logger, clock: clk}
}

func (h *HealthRunner) Register(name string, check HealthCheck, tags ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, reg := range h.checks {
		if reg.Name == name {
			return errDuplicateHealthCheck(name)
		}
	}
	h.checks = append(h.checks, HealthRegistration{Name: name, Tags: slices.Clone(tags), Check: check})
	return nil
}

func (h *HealthRunner) Registrations() []HealthRegistration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.checks)
}

// Check runs the matching checks concurrently. The report status is the
// worst entry status, Healthy when nothing matched.
func (h *HealthRunner) Check(ctx context.Context, predicate Predicate) HealthReport {
	if predicate == nil {
		predicate = AllChecks
	}

	var selected []HealthRegistration
	for _, reg := range h.Registrations() {
		if predicate(reg) {
			selected = append(selected, reg)
		}
	}

	start := h.clock.Now()
	entries := make([]HealthEntry, len(selected))

	var g errgroup.Group
	for i, reg := range selected {
		g.Go(func() error {
			entries[i] = h.run(ctx, reg)
			return nil
		})
	}
	_ = g.Wait()

	report := HealthReport{
		ID:            uuid.NewString(),
		Status:        Healthy,
		TotalDuration: h.clock.Since(start).String(),
		Entries:       make(map[string]HealthEntry, len(selected)),
	}
	for i, reg := range selected {
		report.Entries[reg.Name] = entries[i]
		if entries[i].Status < report.Status {
			report.Status = entries[i].Status
		}
	}
	return report
}

func (h *HealthRunner) run(ctx context.Context, reg HealthRegistration) (entry HealthEntry) {
	start := h.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			entry.HealthVerdict = faulted("health check panicked", panicError(r))
		}
		entry.Elapsed = h.clock.Since(start)
		entry.Duration = entry.Elapsed.String()
		entry.Tags = reg.Tags
		if entry.Status != Healthy {
			h.logger.Warn("health check not healthy", "check", reg.Name, "status", entry.Status.String(), "error", entry.Error)
		}
	}()

	entry.HealthVerdict = reg.Check(ctx)
	return entry
}

func (e *Engine) AddHealthCheck(name string, check HealthCheck, tags ...string) error {
	return e.health.Register(name, check, tags...)
}

func (e *Engine) CheckHealth(ctx context.Context, predicate Predicate) HealthReport {
	return e.health.Check(ctx, predicate)
}

// CheckStartup runs the startup-tagged checks and fails when any of them is
// Unhealthy. Degraded results are only logged.
func (e *Engine) CheckStartup(ctx context.Context) error {
	report := e.health.Check(ctx, HasAllTags(TagStartup))
	switch report.Status {
	case Unhealthy:
		failing := report.Failing(Unhealthy)
		e.config.logger.Error("startup checks unhealthy", "checks", failing)
		return errStartupUnhealthy(failing)
	case Degraded:
		e.config.logger.Warn("startup checks degraded", "checks", report.Failing(Degraded))
	}
	return nil
}
