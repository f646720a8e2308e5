// Package store persists videos and task audit records in SQLite.
package store
