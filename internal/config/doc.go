// Package config loads, normalizes, and validates recbase configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies RECBASE_* environment overrides
// such as RECBASE_DB and RECBASE_STORE_PATH. The Config type centralizes every
// knob the CLI needs: the catalog database, the blob store, the header parser
// command, the player lookup platform, and the matching thresholds.
//
// Configuration is read once at process start and treated as immutable
// afterwards; pass the *Config value explicitly to the components that need it.
package config
