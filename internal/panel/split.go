package panel

import (
	"sort"

	"go.uber.org/zap"
)

// Split partitions the fully featured panel chronologically: the panel is
// sorted ascending by date with ties broken by beat for determinism, and cut
// at floor(trainFraction × rows). Training strictly precedes validation in
// date order; beats sharing the single boundary date may land on either side,
// which is tolerated and logged rather than hidden. The input is not
// mutated; the sort works on a copy.
func Split(cells []Cell, trainFraction float64) (train, valid []Cell) {
	rows := make([]Cell, len(cells))
	copy(rows, cells)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Beat < rows[j].Beat
	})

	idx := int(trainFraction * float64(len(rows)))
	train, valid = rows[:idx], rows[idx:]

	if len(train) > 0 && len(valid) > 0 {
		boundary := train[len(train)-1].Date
		if valid[0].Date == boundary {
			var leaked int
			for i := range valid {
				if valid[i].Date != boundary {
					break
				}
				leaked++
			}
			zap.L().Info("panel: split boundary date shared across partitions (same-day beats, tolerated)",
				zap.String("boundary_date", boundary.String()),
				zap.Int("validation_rows_on_boundary", leaked),
			)
		}
	}

	zap.L().Info("panel: chronological split",
		zap.Int("train_rows", len(train)),
		zap.Int("validation_rows", len(valid)),
	)
	return train, valid
}
