// Package audit persists the outcome of every dispatched decision to a
// SQLite table so operators can review what was approved or rejected, when,
// and whether the backend accepted it. Audit writes follow the engine's
// degradation policy: failures are logged and swallowed, never fatal.
package audit
