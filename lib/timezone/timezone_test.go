package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	ts := time.Date(2024, time.March, 1, 12, 0, 0, 0, Location)
	_, offset := ts.Zone()
	require.Equal(t, 5*60*60+30*60, offset)
}

func TestFixedTime(t *testing.T) {
	start := time.Date(2024, time.August, 26, 0, 0, 0, 0, Location)
	clock := &FixedTime{Current: start, Step: time.Minute}

	require.Equal(t, start, clock.Now())
	require.Equal(t, start.Add(time.Minute), clock.Now())
}
