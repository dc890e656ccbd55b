package pthash

import (
	"errors"

	"golang.org/x/sync/errgroup"

	pthasherrors "github.com/clayne/pthash/errors"
)

// isSeedError reports whether a build failure is retryable with a new seed.
func isSeedError(err error) bool {
	return errors.Is(err, pthasherrors.ErrSeed)
}

// minKeysPerThread keeps tiny inputs on the calling goroutine; spawning
// workers for a handful of keys costs more than the hashing.
const minKeysPerThread = 4096

// hashKeys hashes all keys under the seed. Threads split the key range into
// contiguous chunks writing by index, so the result is independent of the
// thread count.
func hashKeys(hasher Hasher, keys [][]byte, seed uint64, numThreads int) []Hash128 {
	hashes := make([]Hash128, len(keys))
	if numThreads <= 1 || len(keys) < numThreads*minKeysPerThread {
		for i, key := range keys {
			hashes[i] = hasher.Hash(key, seed)
		}
		return hashes
	}

	var g errgroup.Group
	chunk := (len(keys) + numThreads - 1) / numThreads
	for begin := 0; begin < len(keys); begin += chunk {
		end := min(begin+chunk, len(keys))
		g.Go(func() error {
			for i := begin; i < end; i++ {
				hashes[i] = hasher.Hash(keys[i], seed)
			}
			return nil
		})
	}
	_ = g.Wait() // workers cannot fail
	return hashes
}
