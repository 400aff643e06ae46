package panel

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/metrolabs/beatcast/internal/model"
)

// Dataset is a panel partition expanded into a numeric design matrix and
// target vector. Beat and date are retained as identifier columns for
// traceability but are never part of X.
type Dataset struct {
	X     *mat.Dense
	Y     []float64
	Cols  []string
	Beats []string
	Dates []model.Date
}

// featureColumns is the fixed design matrix layout: history features, the
// squared long-window term, and dummy-encoded day-of-week and season with
// one reference level each (Sunday, winter) dropped.
var featureColumns = []string{
	"past_crime_1",
	"past_crime_7",
	"past_crime_30",
	"past_crime_30_sq",
	"past_arrest_30",
	"policing",
	"crime_trend",
	"dow_mon", "dow_tue", "dow_wed", "dow_thu", "dow_fri", "dow_sat",
	"season_spring", "season_summer", "season_fall",
}

// Encode expands panel cells into a Dataset. The column layout is fixed, so
// training and validation partitions encoded separately are always
// conformable.
func Encode(cells []Cell) *Dataset {
	n := len(cells)
	p := len(featureColumns)
	ds := &Dataset{
		Y:     make([]float64, n),
		Cols:  append([]string(nil), featureColumns...),
		Beats: make([]string, n),
		Dates: make([]model.Date, n),
	}
	if n == 0 {
		// gonum rejects zero-row matrices; an empty dataset carries a nil X.
		return ds
	}
	ds.X = mat.NewDense(n, p, nil)

	row := make([]float64, p)
	for i := range cells {
		c := &cells[i]
		for j := range row {
			row[j] = 0
		}
		row[0] = c.PastCrime1
		row[1] = c.PastCrime7
		row[2] = c.PastCrime30
		row[3] = c.PastCrime30 * c.PastCrime30
		row[4] = c.PastArrest30
		row[5] = c.Policing
		row[6] = c.CrimeTrend
		if wd := c.Weekday(); wd != time.Sunday {
			// Monday..Saturday occupy columns 7..12.
			row[6+int(wd)] = 1
		}
		switch c.Season() {
		case model.Spring:
			row[13] = 1
		case model.Summer:
			row[14] = 1
		case model.Fall:
			row[15] = 1
		}
		ds.X.SetRow(i, row)
		ds.Y[i] = float64(c.Count)
		ds.Beats[i] = c.Beat
		ds.Dates[i] = c.Date
	}
	return ds
}

// Rows returns the number of rows in the dataset.
func (d *Dataset) Rows() int { return len(d.Y) }

// Subset returns a new Dataset containing the given row indices, in order.
func (d *Dataset) Subset(idx []int) *Dataset {
	p := len(d.Cols)
	out := &Dataset{
		Y:     make([]float64, len(idx)),
		Cols:  d.Cols,
		Beats: make([]string, len(idx)),
		Dates: make([]model.Date, len(idx)),
	}
	if len(idx) == 0 {
		return out
	}
	out.X = mat.NewDense(len(idx), p, nil)
	for i, r := range idx {
		out.X.SetRow(i, d.X.RawRowView(r))
		out.Y[i] = d.Y[r]
		out.Beats[i] = d.Beats[r]
		out.Dates[i] = d.Dates[r]
	}
	return out
}
