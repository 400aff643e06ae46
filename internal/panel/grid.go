// Package panel converts enriched point-in-time incidents into a regularly
// gridded, temporally lagged beat-day dataset and splits it for modeling.
package panel

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/model"
)

// Cell is one (beat, date) pair of the modeling panel: aggregated incident
// and arrest counts plus the rolling history features. History features are
// NaN between window computation and imputation; after Impute they are
// always defined.
type Cell struct {
	Beat    string     `json:"beat" csv:"beat"`
	Date    model.Date `json:"date" csv:"date"`
	Count   int        `json:"count" csv:"count"`
	Arrests int        `json:"arrests" csv:"arrests"`

	PastCrime1   float64 `json:"past_crime_1" csv:"past_crime_1"`
	PastCrime7   float64 `json:"past_crime_7" csv:"past_crime_7"`
	PastCrime30  float64 `json:"past_crime_30" csv:"past_crime_30"`
	PastArrest30 float64 `json:"past_arrest_30" csv:"past_arrest_30"`
	Policing     float64 `json:"policing" csv:"policing"`
	CrimeTrend   float64 `json:"crime_trend" csv:"crime_trend"`
}

// Weekday is derived from the cell's date.
func (c *Cell) Weekday() time.Weekday { return c.Date.Weekday() }

// Month is derived from the cell's date.
func (c *Cell) Month() time.Month { return c.Date.Month() }

// Season is derived from the cell's month.
func (c *Cell) Season() model.Season { return model.SeasonOf(c.Date.Month()) }

// Grid is the complete beat × date cross product, sorted by beat then date.
// Read-only after construction; the history engine fills feature columns in
// place before the grid is handed to the splitter.
type Grid struct {
	Cells []Cell
	Beats []string     // sorted distinct beats observed anywhere in the input
	Dates []model.Date // sorted distinct dates observed anywhere in the input

	// ranges maps each beat to its contiguous [lo, hi) index range in
	// Cells, the arena the history engine works over.
	ranges map[string][2]int
}

// BuildGrid constructs the full cross product of all observed beats and all
// observed dates, left-joins the per-(beat, date) aggregated incident and
// arrest counts onto it, and zero-fills cells without incidents. The grid is
// the driving side of the join: zero-crime cells are structurally necessary
// for unbiased rolling statistics. Output cardinality is exactly
// len(Beats) × len(Dates).
func BuildGrid(incidents []model.EnrichedIncident) *Grid {
	beatSet := make(map[string]bool)
	dateSet := make(map[model.Date]bool)
	type key struct {
		beat string
		date model.Date
	}
	type agg struct {
		count   int
		arrests int
	}
	sums := make(map[key]agg)

	for i := range incidents {
		inc := &incidents[i]
		beatSet[inc.Beat] = true
		dateSet[inc.Date] = true
		k := key{inc.Beat, inc.Date}
		a := sums[k]
		a.count++
		if inc.Arrest {
			a.arrests++
		}
		sums[k] = a
	}

	beats := make([]string, 0, len(beatSet))
	for b := range beatSet {
		beats = append(beats, b)
	}
	sort.Strings(beats)

	dates := make([]model.Date, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	g := &Grid{
		Cells:  make([]Cell, 0, len(beats)*len(dates)),
		Beats:  beats,
		Dates:  dates,
		ranges: make(map[string][2]int, len(beats)),
	}
	for _, b := range beats {
		lo := len(g.Cells)
		for _, d := range dates {
			a := sums[key{b, d}]
			g.Cells = append(g.Cells, Cell{
				Beat:         b,
				Date:         d,
				Count:        a.count,
				Arrests:      a.arrests,
				PastCrime1:   math.NaN(),
				PastCrime7:   math.NaN(),
				PastCrime30:  math.NaN(),
				PastArrest30: math.NaN(),
			})
		}
		g.ranges[b] = [2]int{lo, len(g.Cells)}
	}

	zap.L().Info("panel: grid built",
		zap.Int("beats", len(beats)),
		zap.Int("dates", len(dates)),
		zap.Int("cells", len(g.Cells)),
		zap.Int("nonzero_cells", len(sums)),
	)

	return g
}

// BeatRange returns the contiguous index range [lo, hi) of a beat's cells.
func (g *Grid) BeatRange(beat string) (lo, hi int, ok bool) {
	r, ok := g.ranges[beat]
	return r[0], r[1], ok
}
