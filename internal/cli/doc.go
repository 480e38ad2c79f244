// Package cli implements the hyprconnectctl command tree.
//
// Every command except doctor, logs and completion is one IPC round trip to
// hyprconnectd. A failed request makes the command return an error, which
// main turns into exit code 1. --json switches output to the raw response
// data; it never changes what the daemon does.
package cli
