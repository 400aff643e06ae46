package panel

import (
	"context"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistoryConfig sets the rolling window sizes in days. Lag is the one-day
// shift, Short and Long the trailing sum windows (7 and 30 by default).
type HistoryConfig struct {
	Lag     int
	Short   int
	Long    int
	Workers int
}

// DefaultHistoryConfig returns the standard 1/7/30 day windows.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{Lag: 1, Short: 7, Long: 30}
}

// HistoryFromWindows builds a HistoryConfig from an ascending window list.
func HistoryFromWindows(windows []int, workers int) HistoryConfig {
	cfg := DefaultHistoryConfig()
	if len(windows) > 0 {
		cfg.Lag = windows[0]
	}
	if len(windows) > 1 {
		cfg.Short = windows[1]
	}
	if len(windows) > 2 {
		cfg.Long = windows[2]
	}
	cfg.Workers = workers
	return cfg
}

// ComputeHistory fills the rolling history features of every cell.
//
// Each beat's chronologically ordered, gap-free series is processed
// independently over its arena range, so beats run in parallel. A trailing
// window of k days at row t sums rows t-k .. t-1, current day excluded; rows
// with t < k have no complete window and stay undefined until Impute.
// Ratio features are computed afterwards by Impute, once their inputs are
// fully defined.
func ComputeHistory(ctx context.Context, g *Grid, cfg HistoryConfig) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, beat := range g.Beats {
		lo, hi, _ := g.BeatRange(beat)
		cells := g.Cells[lo:hi]
		eg.Go(func() error {
			rollBeat(cells, cfg)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	imputed := impute(g)
	deriveRatios(g)

	zap.L().Info("panel: history features computed",
		zap.Int("beats", len(g.Beats)),
		zap.Int("imputed_values", imputed),
	)
	return nil
}

// rollBeat computes lag and trailing sums over one beat's contiguous series.
func rollBeat(cells []Cell, cfg HistoryConfig) {
	n := len(cells)

	// Prefix sums over counts and arrests: prefix[i] = sum of rows [0, i).
	countPrefix := make([]float64, n+1)
	arrestPrefix := make([]float64, n+1)
	for i := 0; i < n; i++ {
		countPrefix[i+1] = countPrefix[i] + float64(cells[i].Count)
		arrestPrefix[i+1] = arrestPrefix[i] + float64(cells[i].Arrests)
	}

	for t := 0; t < n; t++ {
		if t >= cfg.Lag {
			cells[t].PastCrime1 = countPrefix[t] - countPrefix[t-cfg.Lag]
		}
		if t >= cfg.Short {
			cells[t].PastCrime7 = countPrefix[t] - countPrefix[t-cfg.Short]
		}
		if t >= cfg.Long {
			cells[t].PastCrime30 = countPrefix[t] - countPrefix[t-cfg.Long]
			cells[t].PastArrest30 = arrestPrefix[t] - arrestPrefix[t-cfg.Long]
		}
	}
}

// impute replaces every undefined window value with the arithmetic mean of
// that feature column's defined values across the entire panel, and returns
// the number of values replaced. The mean is global, not per beat.
func impute(g *Grid) int {
	columns := []func(*Cell) *float64{
		func(c *Cell) *float64 { return &c.PastCrime1 },
		func(c *Cell) *float64 { return &c.PastCrime7 },
		func(c *Cell) *float64 { return &c.PastCrime30 },
		func(c *Cell) *float64 { return &c.PastArrest30 },
	}

	var total int
	for _, col := range columns {
		var sum float64
		var defined int
		for i := range g.Cells {
			v := *col(&g.Cells[i])
			if !math.IsNaN(v) {
				sum += v
				defined++
			}
		}
		mean := 0.0
		if defined > 0 {
			mean = sum / float64(defined)
		}
		for i := range g.Cells {
			p := col(&g.Cells[i])
			if math.IsNaN(*p) {
				*p = mean
				total++
			}
		}
	}
	return total
}

// deriveRatios computes policing and crime_trend after imputation. A zero
// denominator yields 0, never NaN.
func deriveRatios(g *Grid) {
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.PastCrime30 == 0 {
			c.Policing = 0
			c.CrimeTrend = 0
			continue
		}
		c.Policing = c.PastArrest30 / c.PastCrime30
		c.CrimeTrend = c.PastCrime7 / c.PastCrime30
	}
}

// HistoryMeans reports the global means used for imputation; exposed for
// inspection and testing of the imputation pass.
func HistoryMeans(cells []Cell) map[string]float64 {
	means := make(map[string]float64, 4)
	accumulate := func(name string, get func(*Cell) float64) {
		var sum float64
		var n int
		for i := range cells {
			v := get(&cells[i])
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n > 0 {
			means[name] = sum / float64(n)
		}
	}
	accumulate("past_crime_1", func(c *Cell) float64 { return c.PastCrime1 })
	accumulate("past_crime_7", func(c *Cell) float64 { return c.PastCrime7 })
	accumulate("past_crime_30", func(c *Cell) float64 { return c.PastCrime30 })
	accumulate("past_arrest_30", func(c *Cell) float64 { return c.PastArrest30 })
	return means
}
