// Package transcriber uploads audio files to an OpenAI-compatible
// speech-to-text endpoint and returns transcript text.
package transcriber
