package reflect

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var typeKeyCache sync.Map

var packageDirs = regexp.MustCompile(`[A-Za-z0-9_.~\-]+/`)

func TypeKey[T any]() string {
	return typeKeyFromReflect(TypeOf[T]())
}

func TypeOf[T any]() reflect.Type {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return t
}

func TypeKeyOf(t reflect.Type) string {
	return typeKeyFromReflect(t)
}

func typeKeyFromReflect(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := typeKeyCache.Load(t); ok {
		return cached.(string)
	}

	key := buildTypeKey(t)
	typeKeyCache.Store(t, key)
	return key
}

func buildTypeKey(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if t.Name() != "" {
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.Name()
	}

	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildTypeKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildTypeKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildTypeKey(t.Elem())
	case reflect.Map:
		return "map[" + buildTypeKey(t.Key()) + "]" + buildTypeKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildTypeKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildTypeKey(t.Elem())
		default:
			return "chan " + buildTypeKey(t.Elem())
		}
	default:
		return t.String()
	}
}

func TypeKeyFromValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	return typeKeyFromReflect(reflect.TypeOf(v))
}

func TypeKeyNamed[T any](name string) string {
	return TypeKey[T]() + "#" + name
}

// DisplayName shortens a type key for humans by dropping package path
// directories: "*github.com/acme/app.Database" becomes "*app.Database".
func DisplayName(key string) string {
	return packageDirs.ReplaceAllString(key, "")
}

func TypeName[T any]() string {
	return DisplayName(TypeKey[T]())
}

func DisplayNameOf(v any) string {
	return DisplayName(TypeKeyFromValue(v))
}

// Family returns the bare generic type name of an instantiated type name,
// "opsdiag.Options[app.DB]" -> "Options". Non-generic names lose only their
// package qualifier and pointer marker.
func Family(name string) string {
	name = strings.TrimLeft(name, "*")
	if idx := strings.IndexByte(name, '['); idx != -1 {
		name = name[:idx]
	}
	if idx := strings.LastIndexByte(name, '.'); idx != -1 {
		name = name[idx+1:]
	}
	return name
}

// TypeArgs returns the text between the outermost brackets of an
// instantiated generic type name, or "" when there are none.
func TypeArgs(name string) string {
	start := strings.IndexByte(name, '[')
	end := strings.LastIndexByte(name, ']')
	if start == -1 || end <= start {
		return ""
	}
	return name[start+1 : end]
}

func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

func IsInterface[T any]() bool {
	return TypeOf[T]().Kind() == reflect.Interface
}

func Implements[T any](v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return reflect.TypeOf(v).Implements(t)
}
