package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRuntime(t *testing.T) {
	cases := map[float64]string{
		0:           "0 h 0 min",
		59:          "0 h 0 min",
		60:          "0 h 1 min",
		5400:        "1 h 30 min",
		3599.9:      "0 h 59 min",
		86400 + 125: "24 h 2 min",
		-10:         "0 h 0 min",
		math.NaN():  "0 h 0 min",
		math.Inf(1): "0 h 0 min",
		1e20:        "5124095576030431 h 0 min",
		1 << 64:     "5124095576030431 h 0 min",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatRuntime(in), "seconds=%v", in)
	}
}

func TestEstimateRPM(t *testing.T) {
	assert.Equal(t, 750.0, EstimateRPM(12.5))
	assert.Equal(t, 0.0, EstimateRPM(0))
}

func TestFrequencyLabels(t *testing.T) {
	assert.Equal(t, []string{"3.9", "7.8", "250.0"}, FrequencyLabels([]float64{3.90625, 7.8125, 250}))
	assert.Empty(t, FrequencyLabels(nil))
}

func TestTimeLabel(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 4, 7, 0, time.UTC)
	assert.Equal(t, "09:04:07", TimeLabel(ts))
}

func TestConnStateText(t *testing.T) {
	b, err := Connected.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "connected", string(b))
	assert.Equal(t, "disconnected", ConnState(42).String())
}

func TestConnStateRoundTrip(t *testing.T) {
	var s ConnState
	assert.NoError(t, s.UnmarshalText([]byte("connecting")))
	assert.Equal(t, Connecting, s)
	assert.Error(t, s.UnmarshalText([]byte("sleeping")))
}
