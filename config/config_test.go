package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbOptions struct {
	Host     string        `config:"host"`
	Port     int           `config:"port"`
	Timeout  time.Duration `config:"timeout"`
	Replicas []string      `config:"replicas"`
	MaxConns int           `config:"max_conns"`
}

func (o *dbOptions) SetDefaults() {
	o.Port = 5432
}

func (o dbOptions) Validate() error {
	if o.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

const sampleYAML = `
Database:
  host: db.local
  timeout: 2s
  replicas: a,b
cache:
  size: 10
`

func TestStore_LoadYAMLAndBind(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.NoError(t, s.LoadYAMLBytes([]byte(sampleYAML)))
	assert.Equal(t, uint64(1), s.Revision())

	opts, err := BindNew[dbOptions](s, "database")
	require.NoError(t, err)
	assert.Equal(t, "db.local", opts.Host)
	assert.Equal(t, 5432, opts.Port)
	assert.Equal(t, 2*time.Second, opts.Timeout)
	assert.Equal(t, []string{"a", "b"}, opts.Replicas)
}

func TestStore_LoadYAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	s := NewStore()
	require.NoError(t, s.LoadYAML(path))

	v, ok := s.Get("cache.size")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	assert.Error(t, s.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, s.LoadYAMLBytes([]byte("a: [unclosed")))
}

func TestStore_DotEnvOverridesYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_DATABASE__PORT=6543\nAPP_DATABASE__MAX_CONNS=12\nOTHER=x\n"), 0o600))

	s := NewStore()
	require.NoError(t, s.LoadYAMLBytes([]byte(sampleYAML)))
	require.NoError(t, s.LoadDotEnv("APP", path))

	opts, err := BindNew[dbOptions](s, "database")
	require.NoError(t, err)
	assert.Equal(t, "db.local", opts.Host)
	assert.Equal(t, 6543, opts.Port)
	assert.Equal(t, 12, opts.MaxConns)

	_, ok := s.Get("other")
	assert.False(t, ok)
}

func TestStore_LoadEnv(t *testing.T) {
	t.Setenv("OPSDIAGTEST_DATABASE__HOST", "env-host")

	s := NewStore()
	s.LoadEnv("OPSDIAGTEST")

	v, ok := s.Get("database.host")
	require.True(t, ok)
	assert.Equal(t, "env-host", v)
}

func TestStore_SetAndSection(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("Database.Host", "h")
	s.Set("database.port", 1)

	section, ok := s.Section("database")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"host": "h", "port": 1}, section)

	section["host"] = "mutated"
	again, _ := s.Section("database")
	assert.Equal(t, "h", again["host"])

	_, ok = s.Section("database.host")
	assert.False(t, ok)
	_, ok = s.Section("nowhere")
	assert.False(t, ok)

	assert.Equal(t, uint64(2), s.Revision())
}

func TestStore_Flatten(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.NoError(t, s.LoadYAMLBytes([]byte("a:\n  b: 1\n  c: [x, y]\nd: true\n")))

	assert.Equal(t, map[string]string{"a.b": "1", "a.c": "x,y", "d": "true"}, s.Flatten())
}

func TestBind_Errors(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Set("database.port", "not-a-number")

	_, err := BindNew[dbOptions](s, "database")
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "database", bindErr.Section)
	assert.Equal(t, "config.dbOptions", bindErr.Type)

	_, err = BindNew[dbOptions](s, "missing")
	require.ErrorAs(t, err, &bindErr)
	assert.Contains(t, err.Error(), "host is required")

	assert.ErrorIs(t, Bind(s, "database", nil), ErrNilTarget)
}

func TestBind_NilSource(t *testing.T) {
	t.Parallel()

	type plain struct {
		Name string `config:"name"`
	}
	v, err := BindNew[plain](nil, "anything")
	require.NoError(t, err)
	assert.Equal(t, plain{}, v)
}
