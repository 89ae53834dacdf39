// Package preflight provides readiness checks for the filesystem paths and
// remote services recbase depends on.
//
// "recbase db status" prints every result. Checks for disabled features are
// skipped.
package preflight
