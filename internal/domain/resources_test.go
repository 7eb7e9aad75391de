package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemoryGB(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"4GB", 4},
		{"512MB", 0.5},
		{"2TB", 2048},
		{"1G", 1},
		{"", 0},
	}
	for _, c := range cases {
		got, err := ParseMemoryGB(c.in)
		require.NoError(t, err, c.in)
		assert.InDelta(t, c.want, got, 0.001, c.in)
	}
}

func TestParseMemoryGB_RawBytes(t *testing.T) {
	got, err := ParseMemoryGB("1073741824")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 0.001)
}

func TestParseMemoryGB_Invalid(t *testing.T) {
	_, err := ParseMemoryGB("not-a-size")
	assert.Error(t, err)
}

func TestParseISO8601Duration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"PT1H30M", time.Hour + 30*time.Minute},
		{"P1DT2H", 24*time.Hour + 2*time.Hour},
		{"PT45S", 45 * time.Second},
		{"", 0},
	}
	for _, c := range cases {
		got, err := ParseISO8601Duration(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseISO8601Duration_InvalidPrefix(t *testing.T) {
	_, err := ParseISO8601Duration("1H30M")
	assert.Error(t, err)
}

func TestAvailableResourcesFits(t *testing.T) {
	avail := AvailableResources{NumCPUs: 8, MemoryGB: 16, NumGPUs: 1, NumNodes: 1}

	ok, err := avail.Fits(ResourceRequirements{NumCPUs: 4, Memory: "8GB", NumGPUs: 1, NumNodes: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = avail.Fits(ResourceRequirements{NumCPUs: 16, Memory: "8GB", NumNodes: 1})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = avail.Fits(ResourceRequirements{NumCPUs: 4, Memory: "32GB", NumNodes: 1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableResourcesSubtract(t *testing.T) {
	avail := AvailableResources{NumCPUs: 8, MemoryGB: 16, NumGPUs: 2, NumNodes: 2}
	left := avail.Subtract(ResourceRequirements{NumCPUs: 4, Memory: "4GB", NumGPUs: 1, NumNodes: 1})
	assert.Equal(t, AvailableResources{NumCPUs: 4, MemoryGB: 12, NumGPUs: 1, NumNodes: 1}, left)
}

func TestJobStatusIsTerminalAndActive(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusPendingFailed.IsTerminal())
	assert.False(t, StatusReady.IsTerminal())

	assert.True(t, StatusReady.IsActive())
	assert.True(t, StatusRunning.IsActive())
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusUninitialized.IsActive())
}
