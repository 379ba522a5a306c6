// Package queue provides the durable holding area for calculation records that
// could not be committed to the remote ledger when they were created.
//
// Records are stored one JSON file per record under a single directory:
//   - File names are the record's ULID, so directory order is creation order
//   - Writes go to a temporary file first and are renamed into place
//   - Synced records may stay on disk until removed, they are filtered out of ListPending
//
// The store never fails a calculation: callers treat every error from it as a
// warning and keep operating online-only.
package queue
