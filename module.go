package opsdiag

import "fmt"

// Module groups registrations so a subsystem can be applied to an engine
// in one call.
type Module struct {
	name       string
	registers  []func(e *Engine) error
	submodules []*Module
}

func NewModule(name string) *Module {
	return &Module{
		name: name,
	}
}

func (m *Module) Name() string {
	return m.name
}

func (m *Module) Include(submodule *Module) *Module {
	m.submodules = append(m.submodules, submodule)
	return m
}

// Cache adds a cache to the engine's caches report when applied.
func (m *Module) Cache(cache any) *Module {
	m.registers = append(
		m.registers, func(e *Engine) error {
			e.RegisterCache(cache)
			return nil
		},
	)
	return m
}

func (m *Module) apply(e *Engine) error {
	for _, sub := range m.submodules {
		if err := sub.apply(e); err != nil {
			return err
		}
	}

	for _, register := range m.registers {
		if err := register(e); err != nil {
			return errModuleApplyFailed(m.name, err)
		}
	}
	return nil
}

// Apply registers every module in order, submodules first.
func (e *Engine) Apply(modules ...*Module) error {
	for _, m := range modules {
		if err := m.apply(e); err != nil {
			return err
		}
	}
	return nil
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	return newError(
		ErrCodeProviderFailed,
		fmt.Sprintf("failed to apply module %q", moduleName),
		cause,
	)
}

func ModuleProvide[T any](m *Module, provider Provider[T], opts ...ProviderOption) *Module {
	m.registers = append(
		m.registers, func(e *Engine) error {
			return Provide(e, provider, opts...)
		},
	)
	return m
}

func ModuleProvideValue[T any](m *Module, value T, opts ...ProviderOption) *Module {
	m.registers = append(
		m.registers, func(e *Engine) error {
			return ProvideValue(e, value, opts...)
		},
	)
	return m
}

func ModuleBind[I, T any](m *Module, opts ...ProviderOption) *Module {
	m.registers = append(
		m.registers, func(e *Engine) error {
			return Bind[I, T](e, opts...)
		},
	)
	return m
}

func ModuleProvideWorker[T Worker](m *Module, provider Provider[T], opts ...ProviderOption) *Module {
	m.registers = append(
		m.registers, func(e *Engine) error {
			return ProvideWorker(e, provider, opts...)
		},
	)
	return m
}

func ModuleConfigure[T any](m *Module, section string) *Module {
	m.registers = append(
		m.registers, func(e *Engine) error {
			return Configure[T](e, section)
		},
	)
	return m
}
