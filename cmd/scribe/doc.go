// Package main hosts the Scribe CLI entrypoint and command graph.
//
// The Cobra-based command tree covers video ingestion, manual stage
// enqueueing, queue inspection and maintenance, per-video detail views, and
// configuration scaffolding. Commands open the SQLite store and Redis queue
// directly for the duration of one invocation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
