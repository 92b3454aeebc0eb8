package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.Local)

	start, end, err := parseRange("2024-03-01", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local).Add(-time.Nanosecond), end)

	start, end, err = parseRange("2024-03-01", "2024-03-01", now)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Nanosecond, end.Sub(start), "single day range covers the whole day")

	_, _, err = parseRange("03/01/2024", "", now)
	require.Error(t, err)

	_, _, err = parseRange("2024-03-05", "2024-03-01", now)
	require.Error(t, err)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}
