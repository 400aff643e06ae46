package panel

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolabs/beatcast/internal/model"
)

// TestPanelPipeline runs three beats over ten days through grid construction,
// history features, the chronological split, and encoding.
func TestPanelPipeline(t *testing.T) {
	beats := []string{"0101", "0202", "0303"}
	day := func(d int) time.Time {
		return time.Date(2024, time.May, d, 12, 0, 0, 0, time.UTC)
	}

	// 30 incidents spread unevenly: beat 0101 gets two per day on even days,
	// 0202 one per day, 0303 one every third day.
	var incidents []model.EnrichedIncident
	add := func(beat string, d int, arrest bool) {
		incidents = append(incidents, model.EnrichedIncident{
			Incident: model.Incident{Beat: beat, Arrest: arrest},
			Date:     model.DateOf(day(d)),
		})
	}
	for d := 1; d <= 10; d++ {
		if d%2 == 0 {
			add("0101", d, true)
			add("0101", d, false)
		}
		add("0202", d, d%4 == 0)
		if d%3 == 0 {
			add("0303", d, false)
		}
	}

	g := BuildGrid(incidents)
	assert.Equal(t, beats, g.Beats)
	require.Len(t, g.Cells, 30)

	require.NoError(t, ComputeHistory(context.Background(), g, HistoryConfig{Lag: 1, Short: 3, Long: 5}))

	// count conservation per beat across the whole pipeline
	for _, b := range beats {
		lo, hi, ok := g.BeatRange(b)
		require.True(t, ok)
		var got int
		for i := lo; i < hi; i++ {
			got += g.Cells[i].Count
		}
		var want int
		for _, inc := range incidents {
			if inc.Beat == b {
				want++
			}
		}
		assert.Equal(t, want, got, "beat %s", b)
	}

	train, valid := Split(g.Cells, 0.9)
	assert.Len(t, train, 27)
	assert.Len(t, valid, 3)
	maxTrain := train[len(train)-1].Date
	for _, c := range valid {
		assert.GreaterOrEqual(t, int(c.Date), int(maxTrain))
	}

	trainDS, validDS := Encode(train), Encode(valid)
	require.NotNil(t, trainDS.X)
	require.NotNil(t, validDS.X)
	rows, cols := trainDS.X.Dims()
	assert.Equal(t, 27, rows)
	assert.Equal(t, len(featureColumns), cols)
	_, vcols := validDS.X.Dims()
	assert.Equal(t, cols, vcols)

	// every encoded value is finite after imputation and ratio handling
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := trainDS.X.At(i, j)
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "row %d col %s", i, trainDS.Cols[j])
		}
	}
}
