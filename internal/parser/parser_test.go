package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront domain.Content
		expectedBack  domain.Content
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedFront: domain.Text("What is the capital of France?"),
			expectedBack:  domain.Text("Paris"),
		},
		{
			name:          "Context is skipped",
			input:         "Q: What is 1+1?\nA: 2\nC: Basic arithmetic",
			expectedCards: 1,
			expectedFront: domain.Text("What is 1+1?"),
			expectedBack:  domain.Text("2"),
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: domain.Text("What are the primary colors?"),
			expectedBack:  domain.Text("Red\nBlue\nYellow"),
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Separator",
			input: `Q: First
A: One
---
Q: Second
A: Two`,
			expectedCards: 2,
		},
		{
			name:          "Image front",
			input:         "Q: ![a cat](http://x/cat.png)\nA: cat",
			expectedCards: 1,
			expectedFront: domain.Image("http://x/cat.png", "a cat"),
			expectedBack:  domain.Text("cat"),
		},
		{
			name:          "Image without alt text",
			input:         "Q: Which animal?\nA: ![](/img/dog.png)",
			expectedCards: 1,
			expectedFront: domain.Text("Which animal?"),
			expectedBack:  domain.Image("/img/dog.png", ""),
		},
		{
			name:          "Image inside text stays text",
			input:         "Q: Look ![x](/x.png) here\nA: ok",
			expectedCards: 1,
			expectedFront: domain.Text("Look ![x](/x.png) here"),
			expectedBack:  domain.Text("ok"),
		},
		{
			name:          "Question without answer is dropped",
			input:         "Q: Lonely question",
			expectedCards: 0,
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedFront: domain.Text("Question"),
			expectedBack:  domain.Text("Answer"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			entries, err := Parse(r)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(entries))
			}

			if tc.expectedCards == 1 {
				entry := entries[0]
				if entry.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%v', but got '%v'", tc.expectedFront, entry.Front)
				}
				if entry.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%v', but got '%v'", tc.expectedBack, entry.Back)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("Q: 2+2\nA: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Front != domain.Text("2+2") {
		t.Errorf("Unexpected entries: %+v", entries)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
