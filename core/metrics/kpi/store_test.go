package kpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestDay(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	assert.Equal(t, day, Day(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)))
	// 00:30 in UTC+1 is still the previous day in UTC
	assert.Equal(t, day.AddDate(0, 0, -1), Day(time.Date(2025, 3, 1, 0, 30, 0, 0, paris)))
}

func TestMemoryStore_MergesPerDriverAndDay(t *testing.T) {
	s := NewMemoryStore()
	for _, r := range []Record{
		{DriverID: "d1", Date: day.Add(9 * time.Hour), Delivered: 1, DeliveredKg: 20},
		{DriverID: "d1", Date: day.Add(11 * time.Hour), Delivered: 1, DeliveredKg: 10},
		{DriverID: "d1", Date: day.Add(26 * time.Hour), Returned: 1},
		{DriverID: "d2", Date: day.Add(10 * time.Hour), EscalatedCount: 2},
	} {
		require.NoError(t, s.Add(r))
	}

	recs, err := s.Query("d1", day, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, Record{DriverID: "d1", Date: day, Delivered: 2, DeliveredKg: 30}, recs[0])

	recs, err = s.Query("d1", day, day.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Date.Before(recs[1].Date))

	recs, err = s.Query("d2", day.Add(12*time.Hour), day.Add(13*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1, "bounds are widened to whole days")
	assert.Equal(t, 2, recs[0].EscalatedCount)

	recs, err = s.Query("ghost", day, day)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordRates(t *testing.T) {
	r := Record{Delivered: 3, Returned: 1, DeliveredKg: 60}
	assert.Equal(t, 0.75, r.SuccessRate())
	assert.Equal(t, 20.0, r.AverageLoad())
	assert.Zero(t, Record{}.SuccessRate())
	assert.Zero(t, Record{Returned: 2}.AverageLoad())
}

func TestTotal(t *testing.T) {
	recs := []Record{
		{DriverID: "d1", Date: day.AddDate(0, 0, 1), Delivered: 2, DeliveredKg: 15},
		{DriverID: "d1", Date: day, Returned: 1, EscalatedCount: 1},
	}
	got := Total(recs)
	assert.Equal(t, Record{DriverID: "d1", Date: day, Delivered: 2, Returned: 1, DeliveredKg: 15, EscalatedCount: 1}, got)
	assert.Equal(t, Record{}, Total(nil))
}
