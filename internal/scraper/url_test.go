package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseParams(t *testing.T, rawURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query()
}

func TestDataURL(t *testing.T) {
	t.Run("always carries meter identifiers", func(t *testing.T) {
		params := parseParams(t, DataURL("EIC123", "M456", Query{Period: PeriodYear, Year: 2025}))
		assert.Equal(t, "EIC123", params.Get("objectEic"))
		assert.Equal(t, "M456", params.Get("counterNumber"))
	})

	t.Run("year period", func(t *testing.T) {
		params := parseParams(t, DataURL("e", "m", Query{Period: PeriodYear, Year: 2025}))
		assert.Equal(t, "Y", params.Get("period"))
		assert.Equal(t, "2025", params.Get("year"))
		assert.False(t, params.Has("month"))
		assert.False(t, params.Has("day"))
		assert.False(t, params.Has("date"))
		assert.False(t, params.Has("granularity"))
	})

	t.Run("month period defaults to daily granularity", func(t *testing.T) {
		params := parseParams(t, DataURL("e", "m", Query{Period: PeriodMonth, Year: 2025, Month: 9}))
		assert.Equal(t, "M", params.Get("period"))
		assert.Equal(t, "2025", params.Get("year"))
		assert.Equal(t, "9", params.Get("month"))
		assert.Equal(t, "D", params.Get("granularity"))
		assert.False(t, params.Has("date"))
	})

	t.Run("month period keeps explicit granularity", func(t *testing.T) {
		params := parseParams(t, DataURL("e", "m", Query{
			Period: PeriodMonth, Year: 2025, Month: 9, Granularity: GranularityHour,
		}))
		assert.Equal(t, "H", params.Get("granularity"))
	})

	t.Run("day period uses composite date and hourly default", func(t *testing.T) {
		params := parseParams(t, DataURL("e", "m", Query{
			Period: PeriodDay, Year: 2025, Month: 9, Day: 5,
		}))
		assert.Equal(t, "D", params.Get("period"))
		assert.Equal(t, "05.09.2025", params.Get("date"))
		assert.Equal(t, "H", params.Get("granularity"))
		assert.False(t, params.Has("year"))
		assert.False(t, params.Has("month"))
	})

	t.Run("unspecified components default to current date", func(t *testing.T) {
		now := time.Now()

		params := parseParams(t, DataURL("e", "m", Query{Period: PeriodMonth}))
		assert.Equal(t, strconv.Itoa(now.Year()), params.Get("year"))
		assert.Equal(t, strconv.Itoa(int(now.Month())), params.Get("month"))

		params = parseParams(t, DataURL("e", "m", Query{Period: PeriodDay}))
		expected := fmt.Sprintf("%02d.%02d.%d", now.Day(), now.Month(), now.Year())
		assert.Equal(t, expected, params.Get("date"))
	})

	t.Run("points at the chart page", func(t *testing.T) {
		parsed, err := url.Parse(DataURL("e", "m", Query{Period: PeriodYear}))
		require.NoError(t, err)
		assert.Equal(t, "mans.e-st.lv", parsed.Host)
		assert.Equal(t, "/lv/private/paterini-un-norekini/paterinu-grafiki/", parsed.Path)
	})
}
