// Package api holds the workflows shared by the CLI and the daemon: ingesting
// a video URL (catalog metadata fetch, caption short-circuit, task enqueue)
// and building display-ready queue and status views over the store.
package api
