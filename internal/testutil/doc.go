// Package testutil provides deterministic test doubles for worm records:
// a fixed ID generator and an observer that records every guard event.
package testutil
