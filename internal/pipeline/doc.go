// Package pipeline executes the video processing stages: audio fetch,
// transcription, and summarization, plus the chain that runs all three.
//
// Every stage execution writes a task record to the store: the record moves
// to in-progress when the stage starts and lands on completed (with a JSON
// result payload) or failed (with the error message). Stage failures are
// classified so the worker can decide whether a retry makes sense.
package pipeline
