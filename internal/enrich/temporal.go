// Package enrich derives temporal and categorical features from normalized
// incidents.
package enrich

import (
	"time"

	"github.com/metrolabs/beatcast/internal/model"
)

// Temporal derives the calendar features of a timestamp: civil date,
// six-hour time bucket, weekday, and month. Pure; the timestamp is assumed
// to already be a wall-clock value in the dataset's fixed zone.
func Temporal(t time.Time) (model.Date, model.TimeBucket, time.Weekday, time.Month) {
	return model.DateOf(t), model.BucketOf(t), t.Weekday(), t.Month()
}
