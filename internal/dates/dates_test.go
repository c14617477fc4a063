package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalizesLayouts(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-01-15", "2024-01-15 13:45:00", "15.01.2024", "2024/01/15", " 2024-01-15 ", "45306"} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s -> %s", in, got)
		assert.Equal(t, "2024-01-15", Format(got))
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("yarın")
	assert.Error(t, err)
	_, err = Parse("")
	assert.Error(t, err)
}

func TestParseOptional(t *testing.T) {
	v, err := ParseOptional("  ")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptional("2023-05-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-05-01", FormatPtr(v))
	assert.Equal(t, "", FormatPtr(nil))
}
