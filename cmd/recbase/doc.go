// Command recbase catalogs recorded game sessions.
//
// Recordings are added from files, CSV or spreadsheet manifests, series
// archives, or platform match references. Each file is fingerprinted and
// either reported as a duplicate, merged into the match it records, or stored
// as a new match. Query, tag, series, retrieval, and maintenance commands
// operate on the resulting catalog.
package main
