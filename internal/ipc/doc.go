// Package ipc implements the daemon's local control socket.
//
// The protocol is newline-delimited JSON: a client connects, writes one
// Request line, reads one Response line and the server closes the
// connection. Lines longer than MaxLineBytes and unparseable payloads are
// answered with a ProtocolError; idle clients are dropped after the read
// deadline.
//
//	→ {"id":"7c1e…","command":"ping","device":"a1b2","message":"hi"}
//	← {"id":"7c1e…","ok":true,"result":{"device":"a1b2","message":"Ping sent to Pixel"}}
//
// status, devices and list_available are answered from the published cache
// snapshot and never reach the backend. Every other command is handed to a
// Service (the action dispatcher).
package ipc
