// Package constants centralizes defaults shared across the CLI and services.
//
// Listen address, per-source timeouts, and upstream endpoints live here so
// cmd/ and internal/ agree on them without import cycles.
package constants
