// Package logtail reads the tail of the daemon's log file and renders its
// JSON lines for a terminal.
//
// hyprconnectd writes the same zerolog JSON to stderr and, when log_file is
// configured, to a file. Read keeps only the last n lines in memory so large
// files are scanned once without being loaded whole. Render filters by level
// and component and hands each line to zerolog.ConsoleWriter.
package logtail
