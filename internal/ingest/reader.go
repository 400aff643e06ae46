// Package ingest parses the raw incident feed and normalizes it to one
// record per case identifier.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/model"
)

// ErrInvalidTimestamp marks a row whose occurrence timestamp could not be
// parsed at all. Such rows are excluded from all downstream aggregation but
// counted and reported; they are never fatal.
var ErrInvalidTimestamp = eris.New("ingest: invalid timestamp")

// ParseReport summarizes one feed read: how many rows arrived, how many
// parsed, and how many were excluded per failure class.
type ParseReport struct {
	Rows          int `json:"rows"`
	Parsed        int `json:"parsed"`
	BadTimestamps int `json:"bad_timestamps"`
	BadFields     int `json:"bad_fields"`
}

// Reader parses the municipal incident feed CSV. Timestamps are read as
// civil wall-clock values in the dataset's single fixed zone: the zone is
// never applied per record, so clock times inside DST transitions keep
// their literal fields instead of being shifted or dropped.
type Reader struct {
	layout string
}

// NewReader creates a Reader for a feed using the given timestamp layout.
func NewReader(layout string) *Reader {
	return &Reader{layout: layout}
}

// feed header names, as published by the municipal data portal.
const (
	colCaseID       = "case_number"
	colDate         = "date"
	colBlock        = "block"
	colBeat         = "beat"
	colWard         = "ward"
	colPrimaryType  = "primary_type"
	colDescription  = "description"
	colLocationDesc = "location_description"
	colArrest       = "arrest"
	colDomestic     = "domestic"
	colX            = "x_coordinate"
	colY            = "y_coordinate"
	colLatitude     = "latitude"
	colLongitude    = "longitude"
)

// ReadIncidents streams the feed CSV and parses each row into an Incident.
// Rows with unparseable timestamps or malformed flags are excluded, counted
// in the report, and logged; they never abort the read.
func (rd *Reader) ReadIncidents(ctx context.Context, r io.Reader) ([]model.Incident, ParseReport, error) {
	var report ParseReport

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, report, eris.Wrap(err, "ingest: read header")
	}
	idx := indexHeader(header)
	for _, required := range []string{colCaseID, colDate, colBeat} {
		if _, ok := idx[required]; !ok {
			return nil, report, eris.Errorf("ingest: feed missing required column %q", required)
		}
	}

	var incidents []model.Incident
	for {
		if ctx.Err() != nil {
			return nil, report, eris.Wrap(ctx.Err(), "ingest: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, report, eris.Wrap(err, "ingest: read row")
		}
		report.Rows++

		inc, err := rd.parseRow(record, idx)
		if err != nil {
			if eris.Is(err, ErrInvalidTimestamp) {
				report.BadTimestamps++
			} else {
				report.BadFields++
			}
			continue
		}
		incidents = append(incidents, inc)
		report.Parsed++
	}

	if report.BadTimestamps > 0 || report.BadFields > 0 {
		zap.L().Warn("ingest: excluded unparseable rows",
			zap.Int("bad_timestamps", report.BadTimestamps),
			zap.Int("bad_fields", report.BadFields),
			zap.Int("parsed", report.Parsed),
		)
	}

	return incidents, report, nil
}

// parseRow converts one CSV record into an Incident.
func (rd *Reader) parseRow(record []string, idx map[string]int) (model.Incident, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, err := time.Parse(rd.layout, field(colDate))
	if err != nil {
		return model.Incident{}, eris.Wrap(ErrInvalidTimestamp, err.Error())
	}

	arrest, err := parseFlag(field(colArrest))
	if err != nil {
		return model.Incident{}, eris.Wrapf(err, "ingest: arrest flag")
	}
	domestic, err := parseFlag(field(colDomestic))
	if err != nil {
		return model.Incident{}, eris.Wrapf(err, "ingest: domestic flag")
	}

	inc := model.Incident{
		CaseID:       field(colCaseID),
		OccurredAt:   ts,
		Block:        field(colBlock),
		Beat:         field(colBeat),
		Ward:         field(colWard),
		PrimaryType:  field(colPrimaryType),
		Description:  field(colDescription),
		LocationDesc: field(colLocationDesc),
		Arrest:       arrest,
		Domestic:     domestic,
	}
	// Coordinates are optional in the feed; a blank pair stays zero.
	inc.X, _ = strconv.ParseFloat(field(colX), 64)
	inc.Y, _ = strconv.ParseFloat(field(colY), 64)
	inc.Latitude, _ = strconv.ParseFloat(field(colLatitude), 64)
	inc.Longitude, _ = strconv.ParseFloat(field(colLongitude), 64)

	return inc, nil
}

// parseFlag reads the feed's boolean encodings. Blank means false.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "false", "f", "n", "no", "0":
		return false, nil
	case "true", "t", "y", "yes", "1":
		return true, nil
	}
	return false, eris.Errorf("ingest: malformed flag %q", s)
}

// indexHeader maps normalized column names to positions. Portal exports vary
// between "Case Number" and "case_number" styles; both normalize the same.
func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		idx[name] = i
	}
	return idx
}
