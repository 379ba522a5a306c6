// Package syncer reconciles the local offline queue with the remote ledger.
//
// A Coordinator owns three things:
//   - the pending-upload count shown to users
//   - the reaction to connectivity transitions (drain on every offline to
//     online edge, nothing else)
//   - a single-flight sync pass that writes queued records one at a time
//
// A record that fails to upload stays pending and the pass moves on to the
// next one. Partial progress is normal; the next pass retries what is left.
//
// Callers observe the coordinator through State and Subscribe. The
// coordinator never panics or returns hard errors for sync-path failures;
// they surface as LastError and Warning in State.
package syncer
