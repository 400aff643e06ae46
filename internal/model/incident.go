// Package model holds the core domain types of the crime panel pipeline:
// raw and enriched incidents, civil dates, time-of-day buckets, seasons,
// and the canonical category registry.
package model

import (
	"time"
)

// Incident is one reported crime event as ingested from the municipal feed.
// Immutable after normalization; derived fields live on EnrichedIncident.
type Incident struct {
	CaseID       string    `json:"case_id" csv:"case_id"`
	OccurredAt   time.Time `json:"occurred_at" csv:"occurred_at"`
	Block        string    `json:"block" csv:"block"`
	Beat         string    `json:"beat" csv:"beat"`
	Ward         string    `json:"ward" csv:"ward"`
	PrimaryType  string    `json:"primary_type" csv:"primary_type"`
	Description  string    `json:"description" csv:"description"`
	LocationDesc string    `json:"location_desc" csv:"location_desc"`
	Arrest       bool      `json:"arrest" csv:"arrest"`
	Domestic     bool      `json:"domestic" csv:"domestic"`
	X            float64   `json:"x" csv:"x"`
	Y            float64   `json:"y" csv:"y"`
	Latitude     float64   `json:"latitude" csv:"latitude"`
	Longitude    float64   `json:"longitude" csv:"longitude"`
}

// EnrichedIncident is an Incident annotated with derived temporal and
// categorical features.
type EnrichedIncident struct {
	Incident

	Date     Date         `json:"date"`
	Bucket   TimeBucket   `json:"bucket"`
	Weekday  time.Weekday `json:"weekday"`
	Month    time.Month   `json:"month"`
	Season   Season       `json:"season"`
	Category Category     `json:"category"`
	Violent  bool         `json:"violent"`
}

// Date is a civil calendar date stored as days since the Unix epoch, so
// consecutive dates differ by exactly one and ranges are gap-free by
// construction.
type Date int

// DateOf truncates a timestamp to its civil date in the timestamp's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) Month() time.Month     { return d.Time().Month() }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.Time().Format("2006-01-02") }

// MarshalText renders the date as YYYY-MM-DD for CSV and JSON output.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText parses a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return DateOf(t), nil
}

// TimeBucket is one of four fixed six-hour windows partitioning the day.
type TimeBucket int

const (
	BucketNight     TimeBucket = iota // [00:00, 06:00), closed at midnight
	BucketMorning                     // [06:00, 12:00)
	BucketAfternoon                   // [12:00, 18:00)
	BucketEvening                     // [18:00, 24:00)
)

// BucketOf assigns a timestamp to its six-hour window. The partition is
// total: every instant of the day, midnight included, maps to exactly one
// bucket.
func BucketOf(t time.Time) TimeBucket {
	return TimeBucket(t.Hour() / 6)
}

func (b TimeBucket) String() string {
	switch b {
	case BucketNight:
		return "00-06"
	case BucketMorning:
		return "06-12"
	case BucketAfternoon:
		return "12-18"
	case BucketEvening:
		return "18-24"
	}
	return "unknown"
}

// Season is the meteorological season derived from the calendar month.
type Season int

const (
	Winter Season = iota // Dec-Feb
	Spring               // Mar-May
	Summer               // Jun-Aug
	Fall                 // Sep-Nov
)

// SeasonOf maps a month to its season.
func SeasonOf(m time.Month) Season {
	switch {
	case m >= time.March && m <= time.May:
		return Spring
	case m >= time.June && m <= time.August:
		return Summer
	case m >= time.September && m <= time.November:
		return Fall
	default:
		return Winter
	}
}

func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Fall:
		return "fall"
	}
	return "winter"
}
