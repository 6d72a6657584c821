package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"string", `"a b c"`, []string{"a", "b", "c"}},
		{"array", `["a","b","c"]`, []string{"a", "b", "c"}},
		{"extra spaces", `"  a   b "`, []string{"a", "b"}},
		{"array with spaced element", `["a b","c"]`, []string{"a", "b", "c"}},
		{"array with empties", `["", "a", ""]`, []string{"a"}},
		{"duplicates kept", `"a a b"`, []string{"a", "a", "b"}},
		{"empty string", `""`, []string{}},
		{"null", `null`, []string{}},
		{"absent", ``, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeScope(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeScopeStringAndArrayAgree(t *testing.T) {
	t.Parallel()

	fromString, err := NormalizeScope(json.RawMessage(`"a b c"`))
	require.NoError(t, err)
	fromArray, err := NormalizeScope(json.RawMessage(`["a","b","c"]`))
	require.NoError(t, err)
	assert.Equal(t, fromString, fromArray)
}

func TestNormalizeScopeRejectsOtherTypes(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`42`, `{"a":1}`, `[1,2]`, `true`} {
		_, err := NormalizeScope(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
