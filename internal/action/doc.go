// Package action executes user-triggered device actions on behalf of IPC
// clients.
//
// Requests are checked against the device cache before the backend is
// contacted: an unknown id fails with DeviceNotFound and an unreachable
// target with DeviceUnreachable. Backend failures are returned as-is and never
// retried, since repeating a share or pair request is visible to the user.
// Actions that change device state (pair, unpair, refresh, mount,
// toggle_mount) request a reconciliation afterwards so the cache catches up
// without waiting for the next poll.
package action
