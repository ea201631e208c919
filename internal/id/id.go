package id

import "crypto/rand"

// SessionIDLength is the length of a session identifier.
const SessionIDLength = 20

const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SessionID generates a new 20-letter session identifier.
func SessionID() string {
	return Letters(SessionIDLength)
}

// IsSessionID reports whether s has the shape of a session identifier.
func IsSessionID(s string) bool {
	if len(s) != SessionIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// Letters generates a random string of n uppercase ASCII letters.
func Letters(n int) string {
	// Bytes at or above the largest multiple of 26 are rejected so every
	// letter is equally likely.
	const limit = 256 - 256%len(upper)

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, upper[int(b)%len(upper)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
