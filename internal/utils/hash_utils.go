package utils

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// XXH3FromBytes computes a content hash usable as a cheap change marker
// for fetched file contents.
func XXH3FromBytes(content []byte) string {
	return fmt.Sprintf("%d", xxhash.Sum64(content))
}

// XXH3Hash hashes a string the same way.
func XXH3Hash(text string) string {
	return fmt.Sprintf("%d", xxhash.Sum64String(text))
}
