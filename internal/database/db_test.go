package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estscraper/estscraper/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndList(t *testing.T) {
	db := openTestDB(t)

	production := 0.5
	require.NoError(t, db.InsertReading(&models.Reading{
		Date: "2025-09-01 00:00", Consumption: 5.1, Production: &production,
	}, "D"))
	require.NoError(t, db.InsertReading(&models.Reading{
		Date: "2025-09-02 00:00", Consumption: 7.2,
	}, "D"))

	readings, err := db.ListReadings("D")
	require.NoError(t, err)
	require.Len(t, readings, 2)

	// Newest first
	assert.Equal(t, "2025-09-02 00:00", readings[0].Date)
	assert.Equal(t, 7.2, readings[0].Consumption)
	assert.Nil(t, readings[0].Production)

	assert.Equal(t, "2025-09-01 00:00", readings[1].Date)
	require.NotNil(t, readings[1].Production)
	assert.Equal(t, 0.5, *readings[1].Production)
}

func TestDuplicatesIgnored(t *testing.T) {
	db := openTestDB(t)

	reading := &models.Reading{Date: "2025-09-01 00:00", Consumption: 5.1}
	require.NoError(t, db.InsertReading(reading, "D"))
	require.NoError(t, db.InsertReading(reading, "D"))

	readings, err := db.ListReadings("D")
	require.NoError(t, err)
	assert.Len(t, readings, 1)

	// Same date at a different granularity is a distinct reading
	require.NoError(t, db.InsertReading(reading, "H"))
	hourly, err := db.ListReadings("H")
	require.NoError(t, err)
	assert.Len(t, hourly, 1)
}

func TestPublishFlow(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertReading(&models.Reading{
		Date: "2025-09-01 00:00", Consumption: 5.1,
	}, "D"))
	require.NoError(t, db.InsertReading(&models.Reading{
		Date: "2025-09-02 00:00", Consumption: 7.2,
	}, "D"))

	unpublished, err := db.ListUnpublished("D")
	require.NoError(t, err)
	require.Len(t, unpublished, 2)

	require.NoError(t, db.MarkPublished(unpublished[0].ID))

	remaining, err := db.ListUnpublished("D")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.NotEqual(t, unpublished[0].ID, remaining[0].ID)

	// Full listing still returns everything
	all, err := db.ListReadings("D")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
