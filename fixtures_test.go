package opsdiag_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/danpasecinic/opsdiag"
	"github.com/danpasecinic/opsdiag/config"
)

type Config struct {
	Port int
	Host string
}

type Database struct {
	Config *Config
	Name   string
}

type Cache struct{}

type Repo struct {
	Cache *Cache
}

type UserRepository interface {
	FindByID(id int) string
}

type PostgresUserRepo struct {
	DB *Database
}

func (r *PostgresUserRepo) FindByID(id int) string {
	return "user-" + r.DB.Name
}

type DatabaseOptions struct {
	Host string `config:"host"`
	Port int    `config:"port"`
}

func (o DatabaseOptions) Validate() error {
	if o.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

type CacheOptions struct {
	Size int `config:"size"`
}

type SearchFeature struct {
	Enabled bool `config:"enabled"`
}

func (f SearchFeature) FeatureEnabled() bool {
	return f.Enabled
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type Indexer struct {
	rec      *recorder
	startErr error
	stopErr  error
}

func (w *Indexer) Start(context.Context) error {
	w.rec.add("start:indexer")
	return w.startErr
}

func (w *Indexer) Stop(context.Context) error {
	w.rec.add("stop:indexer")
	return w.stopErr
}

type Poller struct {
	rec     *recorder
	stopErr error
}

func (w *Poller) Start(context.Context) error {
	w.rec.add("start:poller")
	return nil
}

func (w *Poller) Stop(context.Context) error {
	w.rec.add("stop:poller")
	return w.stopErr
}

type shapeList []opsdiag.Shape

func (s shapeList) OptionShapes() []opsdiag.Shape {
	return s
}

type registrationList []opsdiag.ServiceRegistration

func (r registrationList) ServiceRegistrations() []opsdiag.ServiceRegistration {
	return r
}

func (r registrationList) Resolve(context.Context, string) (any, error) {
	return nil, errors.New("not supported")
}

type panickingSource struct{}

func (panickingSource) OptionShapes() []opsdiag.Shape {
	panic("registry corrupted")
}

func (panickingSource) ServiceRegistrations() []opsdiag.ServiceRegistration {
	panic("registry corrupted")
}

func (panickingSource) Resolve(context.Context, string) (any, error) {
	panic("registry corrupted")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(opts ...opsdiag.Option) *opsdiag.Engine {
	return opsdiag.New(append([]opsdiag.Option{opsdiag.WithLogger(quietLogger())}, opts...)...)
}

func storeWith(values map[string]any) *config.Store {
	s := config.NewStore()
	for k, v := range values {
		s.Set(k, v)
	}
	return s
}
