package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(year int, month time.Month, day int, tas float64) TemperatureRecord {
	return TemperatureRecord{
		Date:   time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Values: Metrics{MetricTas: tas},
	}
}

func testClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2023, time.July, 1, 12, 0, 0, 0, time.UTC))
}

func TestPartitionWindow(t *testing.T) {
	t.Run("exact match is primary, window match is surrounding", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(1990, time.June, 15, 20.1),
			rec(1991, time.June, 17, 21.3),
			rec(1992, time.August, 1, 25.0),
		}
		p, err := PartitionWindow(records, "06-15", 3, YearRange{}, testClock())
		require.NoError(t, err)

		require.Len(t, p.PrimaryDays, 1)
		assert.True(t, p.PrimaryDays[0].IsPrimaryDay)
		assert.Equal(t, 1990, p.PrimaryDays[0].Year())

		require.Len(t, p.SurroundingDays, 1)
		assert.False(t, p.SurroundingDays[0].IsPrimaryDay)
		assert.Equal(t, 1991, p.SurroundingDays[0].Year())
	})

	t.Run("partition is exclusive", func(t *testing.T) {
		var records []TemperatureRecord
		for day := 1; day <= 28; day++ {
			records = append(records, rec(2000, time.June, day, float64(day)))
		}
		p, err := PartitionWindow(records, "06-15", 5, YearRange{}, testClock())
		require.NoError(t, err)

		seen := map[MonthDay]bool{}
		for _, r := range p.PrimaryDays {
			seen[r.MonthDay()] = true
		}
		for _, r := range p.SurroundingDays {
			assert.False(t, seen[r.MonthDay()], "record %s in both partitions", r.MonthDay())
		}
		assert.Len(t, p.PrimaryDays, 1)
		assert.Len(t, p.SurroundingDays, 10)
	})

	t.Run("window wraps across the year boundary", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(1999, time.December, 26, -1.0),
			rec(1999, time.December, 31, -2.0),
			rec(2000, time.January, 2, -3.0),
			rec(2000, time.January, 9, -4.0),
			rec(2000, time.January, 10, -5.0), // outside +7
			rec(1999, time.December, 25, -6.0), // outside -7
		}
		p, err := PartitionWindow(records, "01-02", 7, YearRange{}, testClock())
		require.NoError(t, err)

		require.Len(t, p.PrimaryDays, 1)
		assert.Equal(t, MonthDay("01-02"), p.PrimaryDays[0].MonthDay())

		surrounding := map[MonthDay]bool{}
		for _, r := range p.SurroundingDays {
			surrounding[r.MonthDay()] = true
		}
		assert.True(t, surrounding["12-26"])
		assert.True(t, surrounding["12-31"])
		assert.True(t, surrounding["01-09"])
		assert.False(t, surrounding["01-10"])
		assert.False(t, surrounding["12-25"])
	})

	t.Run("surrounding set is at most 2w per year", func(t *testing.T) {
		var records []TemperatureRecord
		for year := 2000; year <= 2002; year++ {
			d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			for d.Year() == year {
				records = append(records, TemperatureRecord{Date: d, Values: Metrics{MetricTas: 1}})
				d = d.AddDate(0, 0, 1)
			}
		}
		const w = 7
		p, err := PartitionWindow(records, "03-10", w, YearRange{}, testClock())
		require.NoError(t, err)

		perYear := map[int]int{}
		for _, r := range p.SurroundingDays {
			perYear[r.Year()]++
		}
		for year, n := range perYear {
			assert.LessOrEqual(t, n, 2*w, "year %d", year)
		}
		assert.Len(t, p.PrimaryDays, 3)
	})

	t.Run("year range bounds are inclusive and nil means unbounded", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(1960, time.June, 15, 1),
			rec(1961, time.June, 15, 2),
			rec(1990, time.June, 15, 3),
			rec(1991, time.June, 15, 4),
		}

		p, err := PartitionWindow(records, "06-15", 0, Years(1961, 1990), testClock())
		require.NoError(t, err)
		require.Len(t, p.PrimaryDays, 2)
		assert.Equal(t, 1961, p.PrimaryDays[0].Year())
		assert.Equal(t, 1990, p.PrimaryDays[1].Year())

		from := 1961
		p, err = PartitionWindow(records, "06-15", 0, YearRange{From: &from}, testClock())
		require.NoError(t, err)
		assert.Len(t, p.PrimaryDays, 3)

		p, err = PartitionWindow(records, "06-15", 0, YearRange{}, testClock())
		require.NoError(t, err)
		assert.Len(t, p.PrimaryDays, 4)
	})

	t.Run("zero dates are skipped", func(t *testing.T) {
		records := []TemperatureRecord{
			{Values: Metrics{MetricTas: 9.9}},
			rec(2001, time.June, 15, 1),
		}
		p, err := PartitionWindow(records, "06-15", 2, YearRange{}, testClock())
		require.NoError(t, err)
		assert.Len(t, p.PrimaryDays, 1)
		assert.Empty(t, p.SurroundingDays)
	})

	t.Run("radius zero keeps only the target day", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(2001, time.June, 15, 1),
			rec(2001, time.June, 16, 2),
		}
		p, err := PartitionWindow(records, "06-15", 0, YearRange{}, testClock())
		require.NoError(t, err)
		assert.Len(t, p.PrimaryDays, 1)
		assert.Empty(t, p.SurroundingDays)
	})

	t.Run("feb 29 target works from a non-leap clock year", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC))
		records := []TemperatureRecord{
			rec(2020, time.February, 29, 5),
			rec(2021, time.February, 28, 4),
			rec(2021, time.March, 1, 6),
		}
		p, err := PartitionWindow(records, "02-29", 1, YearRange{}, clock)
		require.NoError(t, err)
		require.Len(t, p.PrimaryDays, 1)
		assert.Equal(t, 2020, p.PrimaryDays[0].Year())
		assert.Len(t, p.SurroundingDays, 2)
	})

	t.Run("classification does not depend on the clock year", func(t *testing.T) {
		records := []TemperatureRecord{
			rec(1980, time.December, 30, 1),
			rec(1981, time.January, 2, 2),
		}
		for _, year := range []int{2019, 2020, 2023} {
			clock := clockwork.NewFakeClockAt(time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC))
			p, err := PartitionWindow(records, "01-02", 7, YearRange{}, clock)
			require.NoError(t, err)
			assert.Len(t, p.PrimaryDays, 1, "clock year %d", year)
			assert.Len(t, p.SurroundingDays, 1, "clock year %d", year)
		}
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := PartitionWindow(nil, "15-06", 3, YearRange{}, testClock())
		assert.Error(t, err)

		_, err = PartitionWindow(nil, "06-15", -1, YearRange{}, testClock())
		assert.Error(t, err)
	})
}

func TestParseMonthDay(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"01-01", false},
		{"12-31", false},
		{"02-29", false},
		{"02-30", true},
		{"13-01", true},
		{"1-2", true},
		{"06/15", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			md, err := ParseMonthDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, MonthDay(tt.in), md)
		})
	}
}
