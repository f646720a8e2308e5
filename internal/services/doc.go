// Package services defines the shared error taxonomy and context carriers used
// by pipeline stages and their external service clients.
//
// Errors are tagged with sentinel markers (validation, not found, transient,
// timeout, malformed, ...) so callers can classify a failure without parsing
// strings: the pipeline maps markers onto typed stage results, and the worker
// uses Retryable to decide whether a standalone stage deserves a second
// attempt. Context carriers thread video, stage, and correlation identifiers
// through blocking operations for structured logging.
package services
