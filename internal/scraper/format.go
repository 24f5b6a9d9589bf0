package scraper

import (
	"time"

	"github.com/estscraper/estscraper/pkg/models"
)

// Series keys used by the portal's chart payload. A+ is energy taken
// from the grid, A- is energy fed back (solar generation offset).
const (
	seriesConsumption = "A+"
	seriesProduction  = "A-"
)

// ChartPayload mirrors the JSON embedded in the chart's data-values attribute
type ChartPayload struct {
	Values map[string]SeriesGroup `json:"values"`
}

// SeriesGroup wraps the total series for one measurement direction
type SeriesGroup struct {
	Total Series `json:"total"`
}

// Series is an ordered list of timestamped values
type Series struct {
	Data []DataPoint `json:"data"`
}

// DataPoint is one chart sample keyed by an epoch-millisecond timestamp
type DataPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// FormatReadings reshapes the chart payload into a flat list of dated
// readings, preserving the consumption series' original order.
// Production values are attached only when the payload carries an A-
// series and neto is set; timestamps missing from the production
// series default to 0.
func FormatReadings(payload *ChartPayload, neto bool) []models.Reading {
	consumption := payload.Values[seriesConsumption].Total.Data

	production, hasProduction := payload.Values[seriesProduction]
	if !hasProduction {
		neto = false
	}

	productionByTS := make(map[int64]float64)
	if neto {
		for _, p := range production.Total.Data {
			productionByTS[p.Timestamp] = p.Value
		}
	}

	readings := make([]models.Reading, 0, len(consumption))
	for _, p := range consumption {
		reading := models.Reading{
			Date:        FormatTimestamp(p.Timestamp),
			Consumption: p.Value,
		}
		if neto {
			value := productionByTS[p.Timestamp]
			reading.Production = &value
		}
		readings = append(readings, reading)
	}

	return readings
}

// FormatTimestamp renders an epoch-millisecond timestamp as UTC civil
// time truncated to minute precision, independent of the host timezone.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
