package safe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/procman/internal/model"
)

// TestOrDefault_SwallowsFaults verifies the legacy containment convention:
// errors and panics both collapse into the default value.
func TestOrDefault_SwallowsFaults(t *testing.T) {
	assert.Equal(t, 7, OrDefault(0, func() (int, error) { return 7, nil }))
	assert.Equal(t, -1, OrDefault(-1, func() (int, error) { return 7, errors.New("boom") }))
	assert.Equal(t, -1, OrDefault(-1, func() (int, error) { panic("boom") }))
}

// TestRatio_ZeroIsAmbiguous documents that the legacy helper cannot tell
// a real zero from a defaulted fault, while Percent can.
func TestRatio_ZeroIsAmbiguous(t *testing.T) {
	computedZero := Ratio(0, 10)
	faultZero := Ratio(5, 0)
	assert.Equal(t, computedZero, faultZero, "legacy helper returns the same value for both")

	assert.True(t, Percent(0, 10).OK())
	assert.False(t, Percent(5, 0).OK())
	assert.Equal(t, model.CustomError, model.KindOf(Percent(5, 0).Err()))
}

// TestTry covers success, error and panic outcomes of the tagged boundary.
func TestTry(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		res := Try(func() (string, error) { return "ok", nil })
		require.True(t, res.OK())
		assert.Equal(t, "ok", res.Value())
		assert.NoError(t, res.Err())
	})

	t.Run("error is kept", func(t *testing.T) {
		sentinel := errors.New("sentinel")
		res := Try(func() (string, error) { return "ignored", sentinel })
		assert.False(t, res.OK())
		assert.Empty(t, res.Value())
		assert.ErrorIs(t, res.Err(), sentinel)
		assert.Equal(t, "fallback", res.Or("fallback"))
	})

	t.Run("panic becomes fault", func(t *testing.T) {
		res := Try(func() (int, error) { panic("kaboom") })
		assert.False(t, res.OK())
		assert.Equal(t, model.CustomError, model.KindOf(res.Err()))
		assert.Contains(t, res.Err().Error(), "kaboom")
	})

	t.Run("panic with error keeps chain", func(t *testing.T) {
		sentinel := errors.New("inner")
		res := Try(func() (int, error) { panic(sentinel) })
		assert.ErrorIs(t, res.Err(), sentinel)
	})
}

// TestGuard verifies panic conversion for functions without a result.
func TestGuard(t *testing.T) {
	assert.NoError(t, Guard(func() {}))
	err := Guard(func() { panic("unit exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit exploded")
}

// TestParseInt checks tagged parsing of integers.
func TestParseInt(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"42", 42, true},
		{" 0 ", 0, true},
		{"-3", -3, true},
		{"four", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := ParseInt(tt.input)
			assert.Equal(t, tt.ok, res.OK())
			assert.Equal(t, tt.want, res.Value())
			if !tt.ok {
				assert.Equal(t, model.ReaderError, model.KindOf(res.Err()))
			}
		})
	}
}

// TestParseDuration checks tagged parsing of durations.
func TestParseDuration(t *testing.T) {
	res := ParseDuration("1m30s")
	require.True(t, res.OK())
	assert.Equal(t, 90*time.Second, res.Value())

	bad := ParseDuration("soon")
	assert.False(t, bad.OK())
	assert.Equal(t, model.ReaderError, model.KindOf(bad.Err()))
}

// TestFormatters verifies the display helpers and their defaults.
func TestFormatters(t *testing.T) {
	assert.Equal(t, "1.5 kB", FormatBytes(1500))
	assert.Equal(t, "0 B", FormatBytes(-1))
	assert.Equal(t, "12,345", FormatCount(12345))
	assert.Equal(t, "1.235s", FormatDuration(1234567*time.Microsecond))
	assert.Equal(t, "0s", FormatDuration(-time.Second))
}
