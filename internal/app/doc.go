// Package app is the composition root of hyprconnectd.
//
// # Overview
//
// Run loads configuration, builds the kdeconnect gateway, the device cache,
// the action dispatcher and the IPC server, and then supervises the
// long-running pieces with an errgroup until the context is cancelled.
//
// # Components
//
//   - app.go: Run and the optional Prometheus listener
//   - reconciler.go: the single consumer that fetches and reconciles
//   - poller.go: timer-driven reconciliation requests
//   - listener.go: signal-driven reconciliation requests with backoff
//
// # Data Flow
//
//	 poll ticker ──┐                        ┌──> store.Reconcile ──> notifier
//	               ├──> Reconciler.Request ─┤
//	 D-Bus signal ─┘    (in-flight gate)    └──> gateway.FetchDevices
//
//	 IPC client ──> ipc.Server ──> store.Current()        (reads)
//	                          └──> action.Dispatcher      (actions)
//
// # Coalescing
//
// Both trigger sources share one gate. Request flips an atomic flag from
// idle to busy before handing the request to the reconciler goroutine; the
// flag is cleared only after the cache has been updated. A trigger that
// finds the flag set is dropped and counted in
// hyprconnect_triggers_coalesced_total, so the backend never sees more than
// one enumeration at a time.
//
// # Failure Handling
//
// A failed enumeration is logged at warn level and recorded in the store's
// health record; the cached devices stay servable. When the signal
// subscription breaks, the listener re-subscribes with exponential backoff
// (2s doubling to 30s) while the poller remains the only refresh path.
//
// The first successful reconciliation is the notification baseline:
// devices already connected at startup are not announced.
package app
