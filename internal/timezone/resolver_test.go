package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZonesAt_TokyoOffset(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)

	at := time.Date(2016, 1, 15, 12, 0, 0, 0, time.UTC)
	zones := r.ZonesAt(9*3600, at)

	assert.Contains(t, zones, "Asia/Tokyo")
	assert.Contains(t, zones, "Asia/Seoul")
	assert.NotContains(t, zones, "Europe/Amsterdam")
}

func TestZonesAt_UTCOffset(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)

	at := time.Date(2016, 1, 15, 12, 0, 0, 0, time.UTC)
	zones := r.ZonesAt(0, at)

	assert.Contains(t, zones, "UTC")
	assert.Contains(t, zones, "Europe/London")
}

func TestZonesAt_CachesIntervals(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)

	at := time.Date(2016, 1, 15, 12, 0, 0, 0, time.UTC)
	first := r.ZonesAt(3600, at)
	require.Len(t, r.intervals[3600], 1)

	// A nearby instant inside the cached interval must not add a new one.
	second := r.ZonesAt(3600, at.Add(24*time.Hour))
	assert.Len(t, r.intervals[3600], 1)
	assert.Equal(t, first, second)
}

func TestZonesAt_DSTChangesMembership(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)

	winter := time.Date(2016, 1, 15, 12, 0, 0, 0, time.UTC)
	summer := time.Date(2016, 7, 15, 12, 0, 0, 0, time.UTC)

	winterZones := r.ZonesAt(3600, winter)
	summerZones := r.ZonesAt(3600, summer)

	// Amsterdam is UTC+1 in winter, UTC+2 in summer.
	assert.Contains(t, winterZones, "Europe/Amsterdam")
	assert.NotContains(t, summerZones, "Europe/Amsterdam")
	assert.Contains(t, r.ZonesAt(2*3600, summer), "Europe/Amsterdam")
}

func TestZonesAt_UnknownOffset(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)

	zones := r.ZonesAt(1234, time.Date(2016, 1, 15, 12, 0, 0, 0, time.UTC))
	assert.Empty(t, zones)
}
