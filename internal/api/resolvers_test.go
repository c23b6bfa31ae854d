package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/household-ledger/internal/ledgererr"
)

func TestStringVar(t *testing.T) {
	vars := map[string]interface{}{"name": "checking", "empty": "", "number": 3.0}

	value, err := stringVar(vars, "name")
	require.NoError(t, err)
	assert.Equal(t, "checking", value)

	for _, key := range []string{"empty", "number", "missing"} {
		_, err := stringVar(vars, key)
		require.Error(t, err, "key %s", key)
		assert.True(t, ledgererr.IsValidation(err))
	}
}

func TestTimeVar(t *testing.T) {
	vars := map[string]interface{}{
		"timestamp": "2026-01-02T15:04:05Z",
		"date":      "2026-01-02",
		"garbage":   "yesterday",
	}

	ts, err := timeVar(vars, "timestamp")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), ts.UTC())

	d, err := timeVar(vars, "date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = timeVar(vars, "garbage")
	require.Error(t, err)
	_, err = timeVar(vars, "missing")
	require.Error(t, err)
}

func TestOptionalTimeVar(t *testing.T) {
	got, err := optionalTimeVar(map[string]interface{}{}, "until")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = optionalTimeVar(map[string]interface{}{"until": "2026-01-02"}, "until")
	require.NoError(t, err)
	require.NotNil(t, got)

	_, err = optionalTimeVar(map[string]interface{}{"until": "bogus"}, "until")
	require.Error(t, err)
}

func TestDecimalVar(t *testing.T) {
	vars := map[string]interface{}{
		"asString": "123.45",
		"asNumber": 99.5,
		"garbage":  "1.2.3",
	}

	fromString, err := decimalVar(vars, "asString")
	require.NoError(t, err)
	assert.Equal(t, "123.45", fromString.String())

	fromNumber, err := decimalVar(vars, "asNumber")
	require.NoError(t, err)
	assert.Equal(t, "99.5", fromNumber.String())

	_, err = decimalVar(vars, "garbage")
	require.Error(t, err)
	_, err = decimalVar(vars, "missing")
	require.Error(t, err)
}

func TestStringListVar(t *testing.T) {
	vars := map[string]interface{}{
		"ids":   []interface{}{"a", "b"},
		"empty": []interface{}{},
		"mixed": []interface{}{"a", 5.0},
	}

	ids, err := stringListVar(vars, "ids")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	for _, key := range []string{"empty", "mixed", "missing"} {
		_, err := stringListVar(vars, key)
		require.Error(t, err, "key %s", key)
	}
}

func TestIntVar(t *testing.T) {
	vars := map[string]interface{}{"sequence": 3.0}
	assert.Equal(t, 3, intVar(vars, "sequence", 0))
	assert.Equal(t, 7, intVar(vars, "missing", 7))
}
