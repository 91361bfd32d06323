// Package sharecode generates share codes and extracts them from share links.
package sharecode

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// Codes avoid lookalike characters (0/O, 1/I/L) so they survive being read
// aloud or retyped.
const (
	alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	length   = 8
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// New returns a fresh share code. Uniqueness among active shares is enforced
// by the store's partial unique index; collisions surface as ErrConstraint
// and the caller regenerates.
func New() (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share code: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// Parse accepts either a bare share code or a full share link of the form
// ".../s/<code>" and returns the code. When the last path segment is not a
// plausible code the raw input is returned as a literal code; validity is
// decided by the store lookup, not here.
func Parse(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "/") {
		return raw
	}

	trimmed := strings.TrimRight(raw, "/")
	segments := strings.Split(trimmed, "/")
	last := segments[len(segments)-1]
	if len(segments) >= 2 && segments[len(segments)-2] == "s" && codePattern.MatchString(last) {
		return last
	}
	return raw
}
