// Package logging wires slog into scribe with console and JSON handlers,
// standardized field names, and helpers for deriving per-stage loggers from
// context. Construct loggers through New or NewFromConfig; components receive
// children via NewComponentLogger and WithContext so records carry the video
// id, stage, and correlation id without each call site repeating them.
package logging
