// Package daemon supervises the background worker: it enforces
// single-instance execution via a file lock, checks the queue connection on
// startup, runs the worker loop until shutdown, and exposes a status
// snapshot for the CLI.
package daemon
