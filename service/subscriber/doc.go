// Package subscriber owns the long-lived consumption of the push stream: it
// feeds raw frames through the envelope parser, applies the results to the
// pending set and reflects transport-reported connection state. Backoff and
// reconnection policy belong to the transport collaborator, not here.
package subscriber
