package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolabs/beatcast/internal/model"
)

func TestRenderTable(t *testing.T) {
	ts := time.Date(2024, time.March, 18, 14, 0, 0, 0, time.UTC)
	date := model.DateOf(ts)

	mk := func(beat string, cat model.Category, arrest bool, lat, lon float64) model.EnrichedIncident {
		return model.EnrichedIncident{
			Incident: model.Incident{Beat: beat, Arrest: arrest, Latitude: lat, Longitude: lon},
			Date:     date,
			Bucket:   model.BucketAfternoon,
			Category: cat,
		}
	}

	incidents := []model.EnrichedIncident{
		mk("0101", "THEFT", false, 41.88, -87.65),
		mk("0101", "THEFT", false, 41.90, -87.63),
		mk("0101", "THEFT", false, 0, 0), // no coordinates, excluded from centroid
		mk("0101", "THEFT", true, 41.89, -87.64),
		mk("0202", "BATTERY", false, 41.80, -87.70),
	}

	rows := RenderTable(incidents)
	require.Len(t, rows, 3)

	// sorted by beat, date, category
	assert.Equal(t, "0101", rows[0].Beat)
	assert.Equal(t, "0202", rows[2].Beat)

	var noArrest RenderRow
	for _, r := range rows {
		if r.Beat == "0101" && !r.Arrest {
			noArrest = r
		}
	}
	assert.Equal(t, 3, noArrest.Count)
	assert.InDelta(t, 41.89, noArrest.Latitude, 1e-9)
	assert.InDelta(t, -87.64, noArrest.Longitude, 1e-9)
	assert.Equal(t, "2024-03-18", noArrest.Date)
	assert.Equal(t, "12-18", noArrest.Bucket)
	assert.Equal(t, "Monday", noArrest.Weekday)
	assert.Equal(t, "March", noArrest.Month)

	assert.Empty(t, RenderTable(nil))
}
