// Package roomname generates short, human-shareable room identifiers.
package roomname

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

const (
	// maxAttempts bounds uniqueness retries. After the last attempt the
	// candidate is returned anyway; the random suffix makes a residual
	// collision vanishingly unlikely and the store's unique index is the
	// final arbiter.
	maxAttempts = 5

	// maxSlugLen caps the slugified seed portion of a name.
	maxSlugLen = 24

	suffixBytes = 4
	tokenBytes  = 8
)

// ExistsFunc reports whether a candidate room name is already taken.
type ExistsFunc func(ctx context.Context, name string) (bool, error)

// Generate builds a room name from an optional seed plus a random suffix.
// With a seed, the result is "<slug>-<suffix>"; without one, a purely
// random token. When exists is non-nil, up to maxAttempts candidates are
// tried and the first unused one is returned; if every attempt collides,
// the last candidate is returned without error.
func Generate(ctx context.Context, seed string, exists ExistsFunc) (string, error) {
	var candidate string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var err error
		candidate, err = newCandidate(seed)
		if err != nil {
			return "", err
		}

		if exists == nil {
			return candidate, nil
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("room name uniqueness check: %w", err)
		}
		if !taken {
			return candidate, nil
		}

		log.Debug().
			Str("candidate", candidate).
			Int("attempt", attempt).
			Msg("room name taken, retrying")
	}

	log.Warn().
		Str("candidate", candidate).
		Int("attempts", maxAttempts).
		Msg("room name uniqueness attempts exhausted, returning last candidate")

	return candidate, nil
}

func newCandidate(seed string) (string, error) {
	slug := Slugify(seed)
	if slug == "" {
		token, err := randomToken(tokenBytes)
		if err != nil {
			return "", err
		}
		return token, nil
	}

	suffix, err := randomToken(suffixBytes)
	if err != nil {
		return "", err
	}
	return slug + "-" + suffix, nil
}

// Slugify lowercases the seed and collapses every run of non-alphanumeric
// characters into a single hyphen, trimming to maxSlugLen.
func Slugify(seed string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(seed) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}

	return strings.TrimRight(b.String(), "-")
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToLower(base58.Encode(buf)), nil
}
