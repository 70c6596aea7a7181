// Package dispatch submits operator decisions to the backend and reconciles
// confirmed outcomes back into the pending set. A busy-key guard prevents two
// concurrent submissions for the same approval, and a single bulk-in-flight
// flag keeps bulk and per-item dispatches from racing each other. The local
// removal performed on success is idempotent and convergent with the resolved
// notification the stream may deliver independently.
package dispatch
