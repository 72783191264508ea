package knol

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

func TestNormalize(t *testing.T) {
	expected := "what is htmx?\na library for ajax."
	normalized := Normalize(domain.Text("  What is HTMX? \r\n"), domain.Text("A library for AJAX."))

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestNormalizeImage(t *testing.T) {
	expected := "image:http://x/Cat.png|a cat\ncat"
	normalized := Normalize(domain.Image(" http://x/Cat.png ", "A Cat"), domain.Text("Cat"))

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte("q\na")))
		hash := Hash(domain.Text("Q"), domain.Text("A"))

		if hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		h1 := Hash(domain.Text("  what is go? "), domain.Text("A programming language."))
		h2 := Hash(domain.Text("What Is Go?"), domain.Text("A programming language."))
		if h1 != h2 {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("sides do not commute", func(t *testing.T) {
		if Hash(domain.Text("a"), domain.Text("b")) == Hash(domain.Text("b"), domain.Text("a")) {
			t.Error("Expected swapped sides to hash differently")
		}
	})

	t.Run("text and image differ", func(t *testing.T) {
		if Hash(domain.Text("/cat.png"), domain.Text("cat")) == Hash(domain.Image("/cat.png", ""), domain.Text("cat")) {
			t.Error("Expected text and image content to hash differently")
		}
	})
}
