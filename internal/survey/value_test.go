package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnswerValue_Scalars(t *testing.T) {
	v, err := DecodeAnswerValue([]byte(`"Option A"`))
	require.NoError(t, err)
	assert.Equal(t, Text("Option A"), v)

	v, err = DecodeAnswerValue([]byte(`50000`))
	require.NoError(t, err)
	assert.Equal(t, Number(50000), v)

	v, err = DecodeAnswerValue([]byte(`3.5`))
	require.NoError(t, err)
	assert.Equal(t, Number(3.5), v)
}

func TestDecodeAnswerValue_Set(t *testing.T) {
	v, err := DecodeAnswerValue([]byte(`["red", "blue"]`))
	require.NoError(t, err)
	set, ok := v.(Set)
	require.True(t, ok)
	assert.Equal(t, Set{"red", "blue"}, set)
	assert.True(t, set.Contains("red"))
	assert.False(t, set.Contains("green"))
}

func TestDecodeAnswerValue_SetStringifiesNumbers(t *testing.T) {
	// Ranking answers sometimes arrive as numeric option values.
	v, err := DecodeAnswerValue([]byte(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Equal(t, Set{"1", "2", "3"}, v)
}

func TestDecodeAnswerValue_RejectsInvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"null", `null`},
		{"bool", `true`},
		{"object", `{"a": 1}`},
		{"nested array", `[["a"]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAnswerValue([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestNumberOf_Coercion(t *testing.T) {
	n, ok := NumberOf(Number(42))
	require.True(t, ok)
	assert.Equal(t, 42.0, n)

	// Numeric strings coerce.
	n, ok = NumberOf(Text(" 3.25 "))
	require.True(t, ok)
	assert.Equal(t, 3.25, n)

	_, ok = NumberOf(Text("not a number"))
	assert.False(t, ok)

	_, ok = NumberOf(Set{"1"})
	assert.False(t, ok)
}

func TestTextOf_NumberRoundTrip(t *testing.T) {
	// "2" and 2 must compare equal under string comparison.
	s, ok := TextOf(Number(2))
	require.True(t, ok)
	assert.Equal(t, "2", s)

	s, ok = TextOf(Text("hello"))
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = TextOf(Set{"a"})
	assert.False(t, ok)
}

func TestAnswerValueFrom_YAMLShapes(t *testing.T) {
	// yaml.Unmarshal hands us native Go types, not json.Number.
	v, err := AnswerValueFrom(7)
	require.NoError(t, err)
	assert.Equal(t, Number(7), v)

	v, err = AnswerValueFrom([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, Set{"a", "b"}, v)

	_, err = AnswerValueFrom(nil)
	assert.Error(t, err)
}
