package auth

import "crypto/subtle"

// AdminKeyValid compares the presented key against the configured one in
// constant time. An empty configured key rejects everything.
func AdminKeyValid(configured, presented string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
