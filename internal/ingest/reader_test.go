package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedLayout = "01/02/2006 03:04:05 PM"

func TestReadIncidents(t *testing.T) {
	csvData := strings.Join([]string{
		"Case Number,Date,Block,Beat,Ward,Primary Type,Description,Location Description,Arrest,Domestic,X Coordinate,Y Coordinate,Latitude,Longitude",
		"HX100001,03/18/2024 11:40:00 PM,012XX W LAKE ST,1213,27,THEFT,OVER $500,STREET,false,false,1170000,1901000,41.885,-87.657",
		"HX100002,03/19/2024 12:05:00 AM,034XX S STATE ST,0213,3,BATTERY,SIMPLE,APARTMENT,true,true,,,,",
		"HX100003,not a timestamp,056XX N CLARK ST,2012,48,THEFT,POCKET-PICKING,STREET,false,false,,,,",
		"HX100004,03/19/2024 01:15:00 AM,078XX S ASHLAND AVE,0614,17,ROBBERY,ARMED,SIDEWALK,maybe,false,,,,",
	}, "\n")

	rd := NewReader(feedLayout)
	incidents, report, err := rd.ReadIncidents(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 1, report.BadTimestamps)
	assert.Equal(t, 1, report.BadFields)
	require.Len(t, incidents, 2)

	first := incidents[0]
	assert.Equal(t, "HX100001", first.CaseID)
	assert.Equal(t, "1213", first.Beat)
	assert.Equal(t, "THEFT", first.PrimaryType)
	assert.False(t, first.Arrest)
	assert.Equal(t, time.Date(2024, time.March, 18, 23, 40, 0, 0, time.UTC), first.OccurredAt)
	assert.InDelta(t, 41.885, first.Latitude, 1e-9)

	second := incidents[1]
	assert.Equal(t, "HX100002", second.CaseID)
	assert.True(t, second.Arrest)
	assert.True(t, second.Domestic)
	assert.Zero(t, second.Latitude)
}

func TestReadIncidents_MissingRequiredColumn(t *testing.T) {
	csvData := "Case Number,Block,Primary Type\nHX1,012XX W LAKE ST,THEFT\n"

	rd := NewReader(feedLayout)
	_, _, err := rd.ReadIncidents(context.Background(), strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

func TestReadIncidents_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	csvData := "case_number,date,beat\nHX1,03/18/2024 11:40:00 PM,1213\n"
	rd := NewReader(feedLayout)
	_, _, err := rd.ReadIncidents(ctx, strings.NewReader(csvData))
	require.Error(t, err)
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"false", false, false},
		{"FALSE", false, false},
		{"N", false, false},
		{"0", false, false},
		{"true", true, false},
		{"T", true, false},
		{"yes", true, false},
		{"1", true, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFlag(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexHeader(t *testing.T) {
	idx := indexHeader([]string{" Case Number ", "DATE", "primary_type"})
	assert.Equal(t, 0, idx["case_number"])
	assert.Equal(t, 1, idx["date"])
	assert.Equal(t, 2, idx["primary_type"])
}
