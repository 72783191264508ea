// Package knol fingerprints card content so imported decks can be matched
// against cards that already exist.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

// Normalize concatenates both sides of a card after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them. Images contribute their kind, locator and alt text.
func Normalize(front, back domain.Content) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		p = strings.TrimSpace(p)
		return p
	}
	side := func(c domain.Content) string {
		if c.Kind == domain.KindImage {
			return "image:" + strings.TrimSpace(c.Value) + "|" + normalizePart(c.AltText)
		}
		return normalizePart(c.Value)
	}

	// Joined with a newline so "question" and "answer" cannot run together.
	return side(front) + "\n" + side(back)
}

// Hash returns the SHA-256 of the normalized card as a hex string.
func Hash(front, back domain.Content) string {
	sum := sha256.Sum256([]byte(Normalize(front, back)))
	return fmt.Sprintf("%x", sum)
}
