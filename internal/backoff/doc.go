// Package backoff decides what happens to an item after a failed attempt and
// guards the run with a consecutive-failure circuit breaker.
//
// Policy.Decide maps an error and the item's attempt count to a tracker
// status (retry or error), a global backoff delay, and whether the failure
// is fatal for the whole run. Breaker counts consecutive transient failures
// across all items and trips once the configured threshold is reached.
package backoff
