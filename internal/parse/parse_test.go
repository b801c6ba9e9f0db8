package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certporter/internal/core"
	"certporter/internal/pfx"
	"certporter/internal/store"
)

func TestScope(t *testing.T) {
	for in, want := range map[string]store.Scope{
		"user":      store.UserScoped,
		"USER":      store.UserScoped,
		" machine ": store.MachineScoped,
	} {
		got, err := Scope(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "system", "current-user"} {
		_, err := Scope(in)
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), "--scope")
	}
}

func TestMode(t *testing.T) {
	got, err := Mode("")
	require.NoError(t, err)
	assert.Equal(t, core.ModePreValidate, got)

	got, err = Mode("Direct")
	require.NoError(t, err)
	assert.Equal(t, core.ModeDirect, got)

	_, err = Mode("yolo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mode")
}

func TestAlgorithm(t *testing.T) {
	got, err := Algorithm("")
	require.NoError(t, err)
	assert.Equal(t, pfx.AlgorithmLegacy, got)

	got, err = Algorithm("MODERN")
	require.NoError(t, err)
	assert.Equal(t, pfx.AlgorithmModern, got)

	_, err = Algorithm("rc4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--algorithm")
}

func TestMinDays(t *testing.T) {
	assert.NoError(t, MinDays(0))
	assert.NoError(t, MinDays(30))
	require.Error(t, MinDays(-1))
	assert.Contains(t, MinDays(-1).Error(), "--min-days")
}
