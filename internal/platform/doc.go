// Package platform talks to the online match service that recorders upload to.
//
// The client resolves player names to profile ids, fetches match references
// (roster plus per-player recording URLs) and downloads recordings. Profile
// lookups are cached on disk so repeated ingestion of the same players does
// not hit the service again. Lookup failures are reported to callers, which
// treat them as non-fatal.
package platform
