package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Source is anything that can hand out a configuration subtree.
type Source interface {
	Section(path string) (map[string]any, bool)
}

// Validator is implemented by option payloads that check themselves after
// binding.
type Validator interface {
	Validate() error
}

// Defaulter is implemented by option payloads that fill defaults before
// binding.
type Defaulter interface {
	SetDefaults()
}

var ErrNilTarget = errors.New("bind target must be a non-nil pointer")

type BindError struct {
	Section string
	Type    string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind section %q to %s: %v", e.Section, e.Type, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Bind decodes the section into target and validates the result. A missing
// section binds nothing, so defaults and validation still apply.
func Bind(src Source, section string, target any) error {
	rv := reflect.ValueOf(target)
	if target == nil || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &BindError{Section: section, Type: fmt.Sprintf("%T", target), Err: ErrNilTarget}
	}
	typeName := rv.Type().Elem().String()

	if d, ok := target.(Defaulter); ok {
		d.SetDefaults()
	}

	var input map[string]any
	if src != nil {
		input, _ = src.Section(section)
	}

	if len(input) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "config",
			WeaklyTypedInput: true,
			Result:           target,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		})
		if err != nil {
			return &BindError{Section: section, Type: typeName, Err: err}
		}
		if err := decoder.Decode(input); err != nil {
			return &BindError{Section: section, Type: typeName, Err: err}
		}
	}

	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &BindError{Section: section, Type: typeName, Err: err}
		}
	}
	return nil
}

// BindNew binds a fresh T.
func BindNew[T any](src Source, section string) (T, error) {
	var value T
	err := Bind(src, section, &value)
	return value, err
}
