package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	baseHost     = "https://mans.e-st.lv"
	loginPageURL = baseHost + "/lv/private/user-authentification/"
	dataPageURL  = baseHost + "/lv/private/paterini-un-norekini/paterinu-grafiki/"
)

// Period selects the time span a query covers
const (
	PeriodDay   = "D"
	PeriodMonth = "M"
	PeriodYear  = "Y"
)

// Granularity selects the resolution of returned data points
const (
	GranularityHour = "H"
	GranularityDay  = "D"
)

// Query describes one chart request. Zero date components default to
// the current date's corresponding component when the URL is built.
type Query struct {
	Period      string
	Year        int
	Month       int
	Day         int
	Granularity string
}

// DataURL builds the consumption chart URL for the given meter and query:
//   - year period carries only the year
//   - month period carries year, month and granularity (default daily)
//   - day period carries a DD.MM.YYYY date and granularity (default hourly)
func DataURL(objectEIC, meterID string, q Query) string {
	now := time.Now()

	year := q.Year
	if year == 0 {
		year = now.Year()
	}

	params := url.Values{}
	params.Set("objectEic", objectEIC)
	params.Set("counterNumber", meterID)
	params.Set("period", q.Period)

	switch q.Period {
	case PeriodYear:
		params.Set("year", strconv.Itoa(year))
	case PeriodMonth:
		month := q.Month
		if month == 0 {
			month = int(now.Month())
		}
		granularity := q.Granularity
		if granularity == "" {
			granularity = GranularityDay
		}
		params.Set("year", strconv.Itoa(year))
		params.Set("month", strconv.Itoa(month))
		params.Set("granularity", granularity)
	case PeriodDay:
		month := q.Month
		if month == 0 {
			month = int(now.Month())
		}
		day := q.Day
		if day == 0 {
			day = now.Day()
		}
		granularity := q.Granularity
		if granularity == "" {
			granularity = GranularityHour
		}
		params.Set("date", fmt.Sprintf("%02d.%02d.%d", day, month, year))
		params.Set("granularity", granularity)
	}

	return dataPageURL + "?" + params.Encode()
}
