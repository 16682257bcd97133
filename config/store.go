package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store is a nested, case-insensitive key/value tree assembled from YAML,
// dotenv files, the process environment and explicit overrides. Later
// loads win. Every change bumps the revision.
type Store struct {
	mu       sync.RWMutex
	data     map[string]any
	revision uint64
}

func NewStore() *Store {
	return &Store{data: make(map[string]any)}
}

func (s *Store) LoadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := s.LoadYAMLBytes(raw); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

func (s *Store) LoadYAMLBytes(raw []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	merge(s.data, normalize(doc).(map[string]any))
	s.revision++
	return nil
}

// LoadDotEnv reads dotenv files and applies the variables carrying prefix
// the same way LoadEnv does. The process environment is left untouched.
func (s *Store) LoadDotEnv(prefix string, paths ...string) error {
	vars, err := godotenv.Read(paths...)
	if err != nil {
		return fmt.Errorf("read dotenv: %w", err)
	}
	s.applyEnv(prefix, vars)
	return nil
}

// LoadEnv maps PREFIX_SECTION__KEY=value to section.key.
func (s *Store) LoadEnv(prefix string) {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	s.applyEnv(prefix, vars)
}

func (s *Store) applyEnv(prefix string, vars map[string]string) {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		if strings.HasPrefix(strings.ToUpper(k), strings.ToUpper(prefix)) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		path := strings.ReplaceAll(k[len(prefix):], "__", ".")
		if path == "" {
			continue
		}
		setPath(s.data, path, vars[k])
	}
	s.revision++
}

func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setPath(s.data, path, normalize(value))
	s.revision++
}

func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := lookup(s.data, path)
	if !ok {
		return nil, false
	}
	return clone(v), true
}

// Section returns a copy of the subtree at path. The empty path is the root.
func (s *Store) Section(path string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if path == "" {
		return clone(s.data).(map[string]any), true
	}
	v, ok := lookup(s.data, path)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return clone(m).(map[string]any), true
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Flatten returns every leaf as dotted path to text.
func (s *Store) Flatten() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	flatten("", s.data, out)
	return out
}

func flatten(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = fmt.Sprint(item)
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

func lookup(root map[string]any, path string) (any, bool) {
	var cur any = root
	for _, part := range strings.Split(strings.ToLower(path), ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(root map[string]any, path string, value any) {
	parts := strings.Split(strings.ToLower(path), ".")
	cur := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	last := parts[len(parts)-1]
	if m, ok := value.(map[string]any); ok {
		if existing, ok := cur[last].(map[string]any); ok {
			merge(existing, m)
			return
		}
	}
	cur[last] = value
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				merge(dm, sm)
				continue
			}
		}
		dst[k] = v
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[strings.ToLower(k)] = normalize(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[strings.ToLower(fmt.Sprint(k))] = normalize(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = clone(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}
