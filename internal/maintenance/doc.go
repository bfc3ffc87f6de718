// Package maintenance holds the maintenance request lifecycle: the status
// state machine, the assignment resolver, the public link token issuer and
// the access mediator that computes per-caller capability sets.
//
// Every function here is pure over a *models.Request: it returns a new copy
// plus the audit events to emit, and leaves persistence, concurrency control
// and delivery to the caller.
package maintenance
