// Package keys handles signing keys for rate publishers and resolvers.
//
// Two kinds of key text exist: "ed25519:" keys sign chain nodes and
// receipts, "dilithium3:" keys sign receipts only. Formatting, parsing,
// and role-seed derivation are pure and deterministic, and they are the
// stable surface of this package.
//
// The filesystem key store (KeyStore and friends) is a local-first
// convenience for the CLI: seeds on disk, optionally sealed with a
// passphrase. It is not part of the long-term protocol contract.
package keys
