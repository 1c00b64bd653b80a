// Package localstore persists small string values under string keys on the
// client side, mirroring browser local storage semantics: single mutable
// slot per key, no TTL, best-effort durability. The session manager keeps
// its remembered credentials here.
package localstore

// Store is a key/value slot holder. Get never fails: malformed or missing
// data reads as absent, which callers treat as "no value".
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes the value under key. Removing a missing key is a no-op.
	Delete(key string) error
}
