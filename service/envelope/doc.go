// Package envelope turns raw push-stream frames into typed instructions for
// the pending approval set. Frames arrive from heterogeneous upstream
// producers, so every logical field is resolved through an explicit
// alias-priority lookup table and anything malformed is dropped silently.
package envelope
