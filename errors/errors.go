// Package errors defines all exported error sentinels for the pthash library.
//
// This is the single source of truth for error values. Both the top-level
// pthash package and internal algorithm packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Build errors
var (
	// ErrSeed signals that the pilot search exhausted its bound, or that two
	// keys in the same bucket collided on their second hash half. Non-fatal:
	// retry the whole build with a different seed.
	ErrSeed = errors.New("pthash: unsuccessful seed - retry with a different seed")

	// ErrInvalidArgument signals a malformed build configuration. Fatal; do
	// not retry.
	ErrInvalidArgument = errors.New("pthash: invalid argument")

	// ErrHashCollisionRisk signals that, for the chosen hash width and key
	// count, the probability of a full hash collision exceeds the acceptable
	// threshold. Fatal; use a wider hash.
	ErrHashCollisionRisk = errors.New("pthash: hash collision probability too high - use a wider hash")

	ErrEmptyKeySet = errors.New("pthash: cannot build over zero keys")
)

// Serialization errors
var (
	ErrInvalidMagic   = errors.New("pthash: invalid magic number")
	ErrInvalidVersion = errors.New("pthash: unsupported format version")
	ErrChecksumFailed = errors.New("pthash: file checksum verification failed")
	ErrTruncatedFile  = errors.New("pthash: file is truncated")
	ErrCorruptedData  = errors.New("pthash: serialized data is corrupted")
)
