package stream

import "github.com/zeebo/xxh3"

// Fingerprint hashes the identity of op for plan caches. Operators with
// equal IDs share a fingerprint.
func Fingerprint(op Operator) uint64 {
	return xxh3.HashString(op.ID())
}
