package gpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGpx = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Morning Loop</name>
    <trkseg>
      <trkpt lat="52.5200" lon="13.4050">
        <ele>34.0</ele>
        <time>2025-06-18T08:00:00Z</time>
      </trkpt>
      <trkpt lat="52.5300" lon="13.4050">
        <ele>36.0</ele>
        <time>2025-06-18T08:05:00Z</time>
      </trkpt>
      <trkpt lat="52.5400" lon="13.4050">
        <ele>35.0</ele>
        <time>2025-06-18T08:10:00Z</time>
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

const emptyGpx = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>Nothing</name><trkseg></trkseg></trk>
</gpx>`

func TestSummarizeRide(t *testing.T) {
	summary, err := SummarizeRide([]byte(sampleGpx))
	require.NoError(t, err)

	// Two hops of ~0.01 degrees latitude each, a bit over a mile in total.
	assert.Greater(t, summary.Miles, 1.0)
	assert.Less(t, summary.Miles, 2.0)
	assert.Equal(t, "2025-06-18", summary.RideDate)
}

func TestSummarizeRideEmptyTrack(t *testing.T) {
	_, err := SummarizeRide([]byte(emptyGpx))
	assert.ErrorIs(t, err, ErrEmptyTrack)
}

func TestSummarizeRideInvalidContent(t *testing.T) {
	_, err := SummarizeRide([]byte("this is not xml"))
	assert.Error(t, err)
}
