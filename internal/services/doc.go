// Package services defines shared utilities consumed by the ingestion
// pipeline and the command surface.
//
// Key responsibilities:
//   - Context helpers that stamp file and match identifiers, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that tag every failure
//     with the pipeline stage (parse, hash, fingerprint, resolve, classify,
//     persist, blob, lookup) that produced it.
//   - OutcomeName, which maps a failure onto the name printed by the CLI.
//
// Use these helpers when wiring new pipeline logic so error reporting and
// observability stay uniform across commands.
package services
