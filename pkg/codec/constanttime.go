package codec

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b are equal in time proportional
// only to their (equal) length, never short-circuiting on the first
// mismatching byte. Used to compare authorization hashes (spec §4.2, §4.8).
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
