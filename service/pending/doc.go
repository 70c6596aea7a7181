// Package pending owns the reconciled set of approvals awaiting an operator
// decision. It is the single shared mutable resource of the engine: the
// stream subscriber upserts and removes items as notifications arrive, the
// decision dispatcher removes items it has confirmed, and both paths converge
// on the same idempotent operations. Every successful mutation is written
// through to the persistence slot; storage failures degrade the session to
// in-memory-only, they never propagate.
package pending
