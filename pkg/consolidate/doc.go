// Package consolidate detects stray session-log files in a watched directory
// and folds them into the single canonical file.
//
// Invariants:
// - Exactly one canonical identifier per engine, fixed at construction.
// - A stray is deleted only after its content is durably appended to the
//   canonical file.
// - Lines within one stray keep their relative order in the canonical file.
// - Every filesystem operation is treated as racy; a vanished file is an
//   expected event, not an error.
//
// Usage:
//
//	eng, _ := consolidate.New(consolidate.Config{Dir: dir, CanonicalID: id})
//	_ = eng.Start()
//	defer eng.Stop()
//	stats := eng.Stats()
//	_ = stats
package consolidate
