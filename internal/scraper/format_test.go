package scraper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	t.Run("renders UTC at minute precision", func(t *testing.T) {
		ms := time.Date(2025, 9, 15, 6, 30, 45, 0, time.UTC).UnixMilli()
		assert.Equal(t, "2025-09-15 06:30", FormatTimestamp(ms))
	})

	t.Run("epoch", func(t *testing.T) {
		assert.Equal(t, "1970-01-01 00:00", FormatTimestamp(0))
	})

	t.Run("idempotent for the same input", func(t *testing.T) {
		ms := int64(1757916000000)
		assert.Equal(t, FormatTimestamp(ms), FormatTimestamp(ms))
	})
}

func TestFormatReadings(t *testing.T) {
	t0 := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	t1 := time.Date(2025, 9, 1, 1, 0, 0, 0, time.UTC).UnixMilli()

	t.Run("joins production by timestamp with zero default", func(t *testing.T) {
		payload := &ChartPayload{Values: map[string]SeriesGroup{
			"A+": {Total: Series{Data: []DataPoint{
				{Timestamp: t0, Value: 5},
				{Timestamp: t1, Value: 7},
			}}},
			"A-": {Total: Series{Data: []DataPoint{
				{Timestamp: t0, Value: 2},
			}}},
		}}

		readings := FormatReadings(payload, true)
		require.Len(t, readings, 2)

		assert.Equal(t, FormatTimestamp(t0), readings[0].Date)
		assert.Equal(t, 5.0, readings[0].Consumption)
		require.NotNil(t, readings[0].Production)
		assert.Equal(t, 2.0, *readings[0].Production)

		assert.Equal(t, FormatTimestamp(t1), readings[1].Date)
		assert.Equal(t, 7.0, readings[1].Consumption)
		require.NotNil(t, readings[1].Production)
		assert.Equal(t, 0.0, *readings[1].Production)
	})

	t.Run("forces production off when the A- series is absent", func(t *testing.T) {
		payload := &ChartPayload{Values: map[string]SeriesGroup{
			"A+": {Total: Series{Data: []DataPoint{
				{Timestamp: t0, Value: 5},
			}}},
		}}

		readings := FormatReadings(payload, true)
		require.Len(t, readings, 1)
		assert.Nil(t, readings[0].Production)

		// The production key must not appear in the output JSON
		encoded, err := json.Marshal(readings)
		require.NoError(t, err)
		assert.NotContains(t, string(encoded), "production")
	})

	t.Run("keeps consumption series order", func(t *testing.T) {
		payload := &ChartPayload{Values: map[string]SeriesGroup{
			"A+": {Total: Series{Data: []DataPoint{
				{Timestamp: t1, Value: 7},
				{Timestamp: t0, Value: 5},
			}}},
		}}

		readings := FormatReadings(payload, false)
		require.Len(t, readings, 2)
		assert.Equal(t, 7.0, readings[0].Consumption)
		assert.Equal(t, 5.0, readings[1].Consumption)
	})

	t.Run("zero production values still serialize", func(t *testing.T) {
		payload := &ChartPayload{Values: map[string]SeriesGroup{
			"A+": {Total: Series{Data: []DataPoint{{Timestamp: t0, Value: 5}}}},
			"A-": {Total: Series{Data: nil}},
		}}

		readings := FormatReadings(payload, true)
		require.Len(t, readings, 1)

		encoded, err := json.Marshal(readings[0])
		require.NoError(t, err)
		assert.Contains(t, string(encoded), `"production":0`)
	})

	t.Run("parses the portal payload shape", func(t *testing.T) {
		raw := `{"values":{"A+":{"total":{"data":[{"timestamp":1756684800000,"value":1.23}]}}}}`

		var payload ChartPayload
		require.NoError(t, json.Unmarshal([]byte(raw), &payload))

		readings := FormatReadings(&payload, true)
		require.Len(t, readings, 1)
		assert.Equal(t, 1.23, readings[0].Consumption)
		assert.Nil(t, readings[0].Production)
	})
}
