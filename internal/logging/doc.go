// Package logging sets up structured slog logging for visindex: JSON records
// to stderr and, optionally, to a size-rotated file under ~/.visindex/logs/.
//
// Recorder is an in-memory slog.Handler for asserting which records a
// component emitted.
package logging
