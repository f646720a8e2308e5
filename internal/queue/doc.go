// Package queue implements the Redis-backed priority task queue that feeds
// the worker loop.
package queue
