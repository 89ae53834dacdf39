// Package rec describes the header metadata of a recorded game session and
// extracts it from raw recording bytes.
//
// Key types:
//   - Header: parsed header fields (map, version, ruleset, roster, start time,
//     duration, recorder)
//   - Parser: the extraction contract used by ingestion
//   - CommandParser: a Parser backed by an external binary that prints JSON
//
// ParseFilenameTime recovers a start timestamp from the file names written by
// the common game clients when the header does not carry one.
package rec
