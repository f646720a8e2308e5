// Package worker runs the dispatch loop: it blocks on the queue, decodes
// task envelopes, and hands them to the pipeline. Tasks with an unknown
// stage or an undecodable payload are logged and dropped. Standalone stages
// that fail transiently are retried in place, reusing the original task
// record; chains are never retried.
package worker
