// Package state holds the daemon's device cache and the reconciliation logic
// that keeps it current.
//
// # Overview
//
// The cache is the single in-memory source of truth for companion devices.
// Two independent producers (the poll timer and the D-Bus signal listener)
// cause full backend enumerations; each enumeration is merged here by
// Store.Reconcile, which publishes a new immutable Snapshot and returns a
// Diff describing what changed.
//
// # Architecture
//
//	Writer (Reconciler):            Readers (IPC handlers):
//	┌────────────────────┐          ┌─────────────────────┐
//	│ gateway fetch      │          │                     │
//	│      ↓             │          │                     │
//	│ store.Reconcile()  │─────────→│ store.Current()     │
//	│      ↓             │ (atomic  │      ↓              │
//	│ Diff → notifier    │  pointer)│ encode response     │
//	└────────────────────┘          └─────────────────────┘
//
// # Concurrency Model
//
// Writers are serialized by a mutex that is only held while the merge is
// computed, never during backend I/O. Readers load the current *Snapshot
// through an atomic pointer and therefore never wait for a writer: a reader
// that obtained generation N keeps a consistent view of N even after N+1 is
// published.
//
// # Update Semantics
//
//	// Successful fetch: new generation, per-field diff
//	diff := store.Reconcile(devices)
//	→ snapshot.Generation = previous + 1
//	→ reported devices get LastUpdated = now
//
//	// Failed fetch: cache untouched, failure recorded in Health
//	store.RecordFailure(err)
//	→ snapshot unchanged
//	→ Health().ConsecutiveFailures++
//
// # Eviction
//
// A device missing from a snapshot is kept (with its previous values and
// LastUpdated) until it has been missing for MissThreshold consecutive
// reconciliations, at which point it is evicted and a FieldDisappeared change
// is emitted exactly once. Reappearing resets the counter.
//
// # Invariants
//
//   - Generation is strictly increasing; UpdatedAt never moves backwards.
//   - Mounted implies a non-empty Mountpoint.
//   - Charging is only set when BatteryPercent is set.
package state
