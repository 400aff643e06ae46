package panel

import (
	"sort"

	"github.com/metrolabs/beatcast/internal/model"
)

// RenderRow is the stable tabular shape consumed by the external geospatial
// renderer: one row per (beat, date, category, arrest, bucket) group with
// the incident count and centroid coordinates.
type RenderRow struct {
	Beat      string         `json:"beat" csv:"beat"`
	Date      string         `json:"date" csv:"date"`
	Category  model.Category `json:"category" csv:"category"`
	Arrest    bool           `json:"arrest" csv:"arrest"`
	Latitude  float64        `json:"latitude" csv:"latitude"`
	Longitude float64        `json:"longitude" csv:"longitude"`
	Bucket    string         `json:"bucket" csv:"bucket"`
	Weekday   string         `json:"weekday" csv:"weekday"`
	Month     string         `json:"month" csv:"month"`
	Count     int            `json:"count" csv:"count"`
}

// RenderTable aggregates enriched incidents into the renderer's table shape.
// Coordinates are the group centroid over incidents that carry them.
func RenderTable(incidents []model.EnrichedIncident) []RenderRow {
	type key struct {
		beat     string
		date     model.Date
		category model.Category
		arrest   bool
		bucket   model.TimeBucket
	}
	type agg struct {
		count  int
		latSum float64
		lonSum float64
		coords int
	}

	groups := make(map[key]*agg)
	for i := range incidents {
		inc := &incidents[i]
		k := key{inc.Beat, inc.Date, inc.Category, inc.Arrest, inc.Bucket}
		a := groups[k]
		if a == nil {
			a = &agg{}
			groups[k] = a
		}
		a.count++
		if inc.Latitude != 0 || inc.Longitude != 0 {
			a.latSum += inc.Latitude
			a.lonSum += inc.Longitude
			a.coords++
		}
	}

	rows := make([]RenderRow, 0, len(groups))
	for k, a := range groups {
		row := RenderRow{
			Beat:     k.beat,
			Date:     k.date.String(),
			Category: k.category,
			Arrest:   k.arrest,
			Bucket:   k.bucket.String(),
			Weekday:  k.date.Weekday().String(),
			Month:    k.date.Month().String(),
			Count:    a.count,
		}
		if a.coords > 0 {
			row.Latitude = a.latSum / float64(a.coords)
			row.Longitude = a.lonSum / float64(a.coords)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Beat != rows[j].Beat {
			return rows[i].Beat < rows[j].Beat
		}
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}
