package panel

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolabs/beatcast/internal/model"
)

// enrichedAt builds a minimal enriched incident for grid construction.
func enrichedAt(beat string, day time.Time, arrest bool) model.EnrichedIncident {
	return model.EnrichedIncident{
		Incident: model.Incident{Beat: beat, Arrest: arrest},
		Date:     model.DateOf(day),
	}
}

func TestBuildGrid(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, time.March, d, 10, 0, 0, 0, time.UTC)
	}

	// beat 0101 active on days 1 and 3, beat 0202 only on day 2; the grid
	// still covers every (beat, date) pair.
	incidents := []model.EnrichedIncident{
		enrichedAt("0101", day(1), true),
		enrichedAt("0101", day(1), false),
		enrichedAt("0101", day(3), false),
		enrichedAt("0202", day(2), true),
	}

	g := BuildGrid(incidents)

	assert.Equal(t, []string{"0101", "0202"}, g.Beats)
	require.Len(t, g.Dates, 3)
	assert.Len(t, g.Cells, 6)

	byKey := make(map[string]Cell, len(g.Cells))
	for _, c := range g.Cells {
		byKey[c.Beat+"/"+c.Date.String()] = c
	}

	assert.Equal(t, 2, byKey["0101/2024-03-01"].Count)
	assert.Equal(t, 1, byKey["0101/2024-03-01"].Arrests)
	assert.Equal(t, 1, byKey["0101/2024-03-03"].Count)
	assert.Equal(t, 1, byKey["0202/2024-03-02"].Count)

	// zero-fill for pairs without incidents
	assert.Zero(t, byKey["0101/2024-03-02"].Count)
	assert.Zero(t, byKey["0202/2024-03-01"].Count)
	assert.Zero(t, byKey["0202/2024-03-03"].Count)

	// counts are conserved across the join
	var total int
	for _, c := range g.Cells {
		total += c.Count
	}
	assert.Equal(t, len(incidents), total)

	// history features start undefined
	for _, c := range g.Cells {
		assert.True(t, math.IsNaN(c.PastCrime1))
		assert.True(t, math.IsNaN(c.PastCrime30))
	}
}

func TestBuildGrid_Cardinality(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, time.June, d, 12, 0, 0, 0, time.UTC)
	}

	beats := []string{"0101", "0202", "0303"}
	var incidents []model.EnrichedIncident
	for d := 1; d <= 10; d++ {
		// one beat per day is enough to make every date observed
		incidents = append(incidents, enrichedAt(beats[d%3], day(d), false))
	}

	g := BuildGrid(incidents)
	assert.Len(t, g.Beats, 3)
	assert.Len(t, g.Dates, 10)
	assert.Len(t, g.Cells, 30)

	for _, b := range beats {
		lo, hi, ok := g.BeatRange(b)
		require.True(t, ok)
		assert.Equal(t, 10, hi-lo)
		for i := lo; i < hi; i++ {
			assert.Equal(t, b, g.Cells[i].Beat)
		}
		// each beat's arena is chronologically ordered and gap-free
		for i := lo + 1; i < hi; i++ {
			assert.Equal(t, g.Cells[i-1].Date+1, g.Cells[i].Date)
		}
	}

	_, _, ok := g.BeatRange("9999")
	assert.False(t, ok)
}

func TestCellCalendar(t *testing.T) {
	d, err := model.ParseDate("2024-07-01")
	require.NoError(t, err)
	c := Cell{Date: d}

	assert.Equal(t, time.Monday, c.Weekday())
	assert.Equal(t, time.July, c.Month())
	assert.Equal(t, model.Summer, c.Season())
}
