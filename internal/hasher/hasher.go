package hasher

import (
	"strconv"
	"unicode/utf8"
)

const (
	seed = 5381

	// MaxKeyLength is the longest feed URL, in characters, used verbatim as a storage key.
	MaxKeyLength = 255
	keyPrefixLen = 200
)

// Sum returns the djb2 fingerprint (hash*33 + c) of the UTF-8 bytes of s.
// An empty string hashes to the seed.
func Sum(s string) uint32 {
	h := uint32(seed)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

// Fields hashes the concatenation of parts without allocating the joined string.
func Fields(parts ...string) uint32 {
	h := uint32(seed)
	for _, p := range parts {
		for i := 0; i < len(p); i++ {
			h = h*33 + uint32(p[i])
		}
	}
	return h
}

// StorageKey maps a feed URL to a bounded storage key. URLs of up to
// MaxKeyLength characters are used verbatim. Longer ones keep their first
// keyPrefixLen characters, suffixed with the hex hash of the full URL.
// Two long URLs sharing a prefix and a hash collide; that is accepted.
func StorageKey(url string) string {
	if utf8.RuneCountInString(url) <= MaxKeyLength {
		return url
	}
	prefix, n := url, 0
	for i := range url {
		if n == keyPrefixLen {
			prefix = url[:i]
			break
		}
		n++
	}
	// \x01 never occurs in a URL, so long keys cannot equal a short URL
	return prefix + "\x01" + strconv.FormatUint(uint64(Sum(url)), 16)
}
