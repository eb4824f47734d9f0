package util

import (
	"strings"

	"github.com/google/uuid"
)

// Fallback is the policy applied to a record whose upstream carries no
// identity of its own.
type Fallback string

const (
	// FallbackDrop leaves the slug empty so the deduplicator discards the record.
	FallbackDrop Fallback = "drop"
	// FallbackRandom assigns a fresh uuid. The same record gets a different
	// slug on every call and never deduplicates across calls.
	FallbackRandom Fallback = "random"
	// FallbackHash derives a stable id from title, company and url. Title and
	// company compare case-insensitively; url paths are case-sensitive.
	FallbackHash Fallback = "hash"
)

func ParseFallback(s string) (Fallback, bool) {
	switch f := Fallback(strings.ToLower(strings.TrimSpace(s))); f {
	case FallbackDrop, FallbackRandom, FallbackHash:
		return f, true
	}
	return "", false
}

// Identity returns a synthesized id, or "" under FallbackDrop.
func (f Fallback) Identity(title, company, url string) string {
	switch f {
	case FallbackRandom:
		return uuid.NewString()
	case FallbackHash:
		key := strings.Join([]string{
			strings.ToLower(CleanText(title)),
			strings.ToLower(CleanText(company)),
			strings.TrimSpace(url),
		}, "\x00")
		return HashString(key)[:16]
	default:
		return ""
	}
}
