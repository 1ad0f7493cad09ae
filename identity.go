// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"crypto/rand"
	"fmt"
)

// remoteSuffix distinguishes the remote identity of a session from the
// identities of its controllers.
const remoteSuffix = "remote"

// tokenLen is the length of the random token in a controller identity.
const tokenLen = 32

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ValidID reports whether s is a legal endpoint identity: a non-empty string
// consisting only of ASCII letters, digits, "_", and "-".
func ValidID(s string) bool {
	if s == "" {
		return false
	}
	for _, b := range s {
		if b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b == '_' || b == '-' {
			continue
		}
		return false
	}
	return true
}

// RemoteID returns the identity of the remote endpoint for session.
// The result is deterministic, so any controller holding the session id can
// find the remote.
func RemoteID(session string) (string, error) {
	return deriveID(session, remoteSuffix)
}

// ControllerID returns a fresh identity for a controller endpoint of session.
// Each call returns a different identity, so several controllers can share a
// session.
func ControllerID(session string) (string, error) {
	return deriveID(session, randomToken(tokenLen))
}

func deriveID(session, suffix string) (string, error) {
	if !ValidID(session) {
		return "", &ValidationError{ID: session}
	}
	return session + "-" + suffix, nil
}

// randomToken returns a string of n characters chosen uniformly from
// tokenAlphabet.
func randomToken(n int) string {
	// 62 symbols: discard bytes >= 248 (4*62) so the modulus is unbiased.
	const limit = 256 - 256%len(tokenAlphabet)

	out := make([]byte, 0, n)
	var buf [64]byte
	for len(out) < n {
		if _, err := rand.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("reading random bytes: %v", err))
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
