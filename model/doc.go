// Package model holds the serialization-facing boundary types.
//
// Nothing here feeds back into protocol identity: canonical BoC bytes,
// digests and CIDs are computed before these projections exist. Consumers
// that need JSON or YAML should marshal these structs and nothing else.
package model
