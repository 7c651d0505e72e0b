package timezone

import (
	"time"
	_ "time/tzdata"
)

// Location is the timezone the portal reports grievance dates in.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
}

// force timezone to be in IST because the portal renders dates without an
// offset, and a run on a machine in another timezone must produce the same
// dataset.
func Now() time.Time {
	return time.Now().In(Location)
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func (StandardTime) Now() time.Time {
	return Now()
}

// FixedTime is a TimeAPI for tests, every call to Now advances it by Step.
type FixedTime struct {
	Current time.Time
	Step    time.Duration
}

func (f *FixedTime) Now() time.Time {
	now := f.Current
	f.Current = f.Current.Add(f.Step)
	return now
}
