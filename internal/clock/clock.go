package clock

import "time"

// NowFunc returns the current time. Override in tests for determinism,
// e.g. when asserting the timestamp-default rule of the envelope parser.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
