package scope

import "fmt"

type Scope int

const (
	Singleton Scope = iota
	Scoped
	Transient
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "singleton":
		*s = Singleton
	case "scoped":
		*s = Scoped
	case "transient":
		*s = Transient
	default:
		return fmt.Errorf("unknown lifetime %q", text)
	}
	return nil
}
