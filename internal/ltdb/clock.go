package ltdb

import "time"

// timeNowUTC is a seam over time.Now so tests can substitute a fixed
// clock without reaching into package internals.
var timeNowUTC = func() time.Time { return time.Now().UTC() }
