package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasOf(t *testing.T, r TemperatureRecord) float64 {
	t.Helper()
	v, ok := r.Values.Value(MetricTas)
	require.True(t, ok, "tas missing on %s", r.Date.Format("2006-01-02"))
	return v
}

func TestRollingMean(t *testing.T) {
	t.Run("centered window with partial edges", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2001, time.May, 1, 1),
			rec(2001, time.May, 2, 2),
			rec(2001, time.May, 3, 3),
			rec(2001, time.May, 4, 4),
			rec(2001, time.May, 5, 5),
		}
		out := RollingMean(records, 1)
		require.Len(t, out, 5)

		assert.Equal(t, 1.5, tasOf(t, out[0]))
		assert.Equal(t, 2.0, tasOf(t, out[1]))
		assert.Equal(t, 3.0, tasOf(t, out[2]))
		assert.Equal(t, 4.0, tasOf(t, out[3]))
		assert.Equal(t, 4.5, tasOf(t, out[4]))
	})

	t.Run("unsorted input is smoothed in date order", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2001, time.May, 3, 3),
			rec(2001, time.May, 1, 1),
			rec(2001, time.May, 2, 2),
		}
		out := RollingMean(records, 1)
		require.Len(t, out, 3)
		assert.Equal(t, time.Date(2001, time.May, 1, 0, 0, 0, 0, time.UTC), out[0].Date)
		assert.Equal(t, 2.0, tasOf(t, out[1]))
	})

	t.Run("missing values are skipped not zeroed", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2001, time.May, 1, 10),
			{Date: time.Date(2001, time.May, 2, 0, 0, 0, 0, time.UTC), Values: Metrics{}},
			rec(2001, time.May, 3, 20),
		}
		out := RollingMean(records, 1)
		require.Len(t, out, 3)

		// The middle window sees 10 and 20 only.
		assert.Equal(t, 15.0, tasOf(t, out[1]))

		// A metric absent from the whole window stays absent.
		_, ok := out[1].Values.Value(MetricHurs)
		assert.False(t, ok)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2001, time.May, 1, 1),
			rec(2001, time.May, 2, 2),
			rec(2001, time.May, 3, 3.5),
		}
		out := RollingMean(records, 1)
		// (1 + 2 + 3.5) / 3 = 2.1666...
		assert.Equal(t, 2.17, tasOf(t, out[1]))
	})

	t.Run("radius zero returns the sorted series unchanged", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2001, time.May, 2, 2),
			rec(2001, time.May, 1, 1),
		}
		out := RollingMean(records, 0)
		require.Len(t, out, 2)
		assert.Equal(t, 1.0, tasOf(t, out[0]))
		assert.Equal(t, 2.0, tasOf(t, out[1]))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, RollingMean(nil, 3))
	})
}

func TestMeanOverYears(t *testing.T) {
	t.Run("averages the same calendar day across years", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(1961, time.June, 15, 10),
			rec(1962, time.June, 15, 20),
			rec(1961, time.June, 16, 30),
		}
		out := MeanOverYears(records, YearRange{})
		require.Len(t, out, 2)

		assert.Equal(t, MonthDay("06-15"), out[0].MonthDay())
		assert.Equal(t, 15.0, tasOf(t, out[0]))
		assert.Equal(t, MonthDay("06-16"), out[1].MonthDay())
		assert.Equal(t, 30.0, tasOf(t, out[1]))
	})

	t.Run("year filter applies", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(1950, time.June, 15, 100),
			rec(1961, time.June, 15, 10),
			rec(1990, time.June, 15, 20),
		}
		out := MeanOverYears(records, Years(1961, 1990))
		require.Len(t, out, 1)
		assert.Equal(t, 15.0, tasOf(t, out[0]))
	})

	t.Run("feb 29 keeps its own row", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2020, time.February, 29, 5),
			rec(2020, time.March, 1, 7),
			rec(2021, time.March, 1, 9),
		}
		out := MeanOverYears(records, YearRange{})
		require.Len(t, out, 2)
		assert.Equal(t, MonthDay("02-29"), out[0].MonthDay())
		assert.Equal(t, 5.0, tasOf(t, out[0]))
		assert.Equal(t, 8.0, tasOf(t, out[1]))
	})
}

func TestCountThresholdDays(t *testing.T) {
	records := []TemperatureRecord{
		{Date: time.Date(2001, time.July, 1, 0, 0, 0, 0, time.UTC), Values: Metrics{MetricTasmax: 31}},
		{Date: time.Date(2001, time.July, 2, 0, 0, 0, 0, time.UTC), Values: Metrics{MetricTasmax: 30}}, // not strictly above
		{Date: time.Date(2001, time.July, 3, 0, 0, 0, 0, time.UTC), Values: Metrics{MetricTasmax: 35}},
		{Date: time.Date(2003, time.July, 1, 0, 0, 0, 0, time.UTC), Values: Metrics{MetricTasmax: 29}},
		{Date: time.Date(2002, time.July, 1, 0, 0, 0, 0, time.UTC), Values: Metrics{}}, // missing never counts
	}

	t.Run("above is strict and years stay sorted", func(t *testing.T) {
		s := CountThresholdDays(records, MetricTasmax, 30, ThresholdAbove)
		assert.Equal(t, []int{2001, 2002, 2003}, s.X)
		assert.Equal(t, []int{2, 0, 0}, s.Y)
	})

	t.Run("below counts the other side", func(t *testing.T) {
		s := CountThresholdDays(records, MetricTasmax, 30, ThresholdBelow)
		assert.Equal(t, []int{2001, 2002, 2003}, s.X)
		assert.Equal(t, []int{0, 0, 1}, s.Y)
	})
}

func TestParseThresholdMode(t *testing.T) {
	mode, err := ParseThresholdMode("above")
	require.NoError(t, err)
	assert.Equal(t, ThresholdAbove, mode)

	_, err = ParseThresholdMode("sideways")
	assert.Error(t, err)
}
