// Package kdeconnect is the daemon's only path to the phone.
//
// Device state, change signals and media control travel over the D-Bus
// session bus (Bus). One-shot actions such as pairing, sharing or mounting
// run the kdeconnect-cli binary as a child process with a deadline (Runner).
// Gateway combines both and satisfies DeviceSource and ActionBackend.
//
// All errors returned from this package are *failure.Error values so callers
// can map them onto wire error kinds without string matching.
package kdeconnect
