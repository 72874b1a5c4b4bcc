package timeutil

import "time"

// IST is the timezone all trip timestamps are recorded in. Depots and
// checkpoints operate on local wall-clock time, so tokens and logs use
// it too rather than UTC.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		IST = time.FixedZone("IST", 5*3600+1800)
	}
}

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(IST)
}
