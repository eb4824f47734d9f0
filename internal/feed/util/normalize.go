package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// FirstNonEmpty returns the first value that is not blank, untrimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// FirstNonEmptyList returns the first list with at least one element, or an
// empty non-nil slice.
func FirstNonEmptyList(lists ...Strings) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return []string(l)
		}
	}
	return []string{}
}

func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
