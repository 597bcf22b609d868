// Package record encodes and decodes single lines of the JSONL session-log
// format.
//
// Invariants:
// - Decoding never interprets payload fields beyond the session identifier.
// - Rewriting the session identifier leaves every other byte of the line
//   untouched, unknown fields and key order included.
// - Lines that fail to decode are reported via ErrMalformed so callers can
//   copy them through verbatim.
package record
