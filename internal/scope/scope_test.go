package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeText(t *testing.T) {
	t.Parallel()

	for _, s := range []Scope{Singleton, Scoped, Transient} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed Scope
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}
}

func TestScopeUnknown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", Scope(42).String())

	var s Scope
	assert.Error(t, s.UnmarshalText([]byte("pooled")))
}
