package gpx

import (
	"errors"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

const metersPerMile = 1609.344

// RideSummary is what we extract from an uploaded GPX track: the total
// distance ridden and the date of the ride, ready to feed the mileage
// ingestor.
type RideSummary struct {
	Miles    float64 `json:"miles"`
	RideDate string  `json:"rideDate"` // YYYY-MM-DD, empty if the track has no timestamps
}

// ErrEmptyTrack means the GPX file parsed fine but contains no track points.
var ErrEmptyTrack = errors.New("gpx file contains no track points")

// SummarizeRide parses GPX file content and reduces it to a ride summary.
// Distance is the 3D track length summed across all tracks and segments,
// converted to miles.
func SummarizeRide(content []byte) (*RideSummary, error) {
	gpxData, err := gpx.ParseBytes(content)
	if err != nil {
		return nil, err
	}

	var meters float64
	var firstStamp time.Time
	points := 0
	for _, track := range gpxData.Tracks {
		meters += track.Length3D()
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				points++
				if firstStamp.IsZero() && !point.Timestamp.IsZero() {
					firstStamp = point.Timestamp
				}
			}
		}
	}

	if points == 0 {
		return nil, ErrEmptyTrack
	}

	summary := &RideSummary{Miles: meters / metersPerMile}
	if !firstStamp.IsZero() {
		summary.RideDate = firstStamp.Format("2006-01-02")
	}
	return summary, nil
}
