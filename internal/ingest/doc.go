// Package ingest drives recordings through the cataloging pipeline.
//
// A single ingestion hashes the raw bytes, short-circuits known content,
// parses the header, derives the fingerprint, stores the payload, and hands
// the result to the resolver. Profile lookups for newly created matches and
// manual series/tag labels run after the commit and never undo it.
//
// Batches (file lists, CSV or spreadsheet manifests, series archives, and
// platform match references) are sequences of independent ingestions run on
// a bounded worker pool; a failing file is reported and the batch continues.
package ingest
