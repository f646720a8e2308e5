// Package notifications delivers pipeline lifecycle events to an ntfy topic.
//
// The service sends a push notification when a video is ingested, when the
// processing chain starts or finishes, when a summary is ready, and on
// errors. Each category can be disabled in the config; with no topic
// configured the whole service becomes a noop.
package notifications
