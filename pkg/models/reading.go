package models

// Reading is a single normalized point from the consumption chart.
// Production is nil when the meter reported no A- (grid feed-in)
// series for the period.
type Reading struct {
	ID          int      `json:"-"`
	Date        string   `json:"date"` // "2006-01-02 15:04", UTC
	Consumption float64  `json:"consumption"`
	Production  *float64 `json:"production,omitempty"`
}
