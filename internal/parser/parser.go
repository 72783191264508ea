// Package parser reads flashcard decks written in markdown.
//
// A deck is a sequence of blocks:
//
//	Q: What is the capital of France?
//	A: Paris
//	---
//	Q: ![Eiffel tower](https://example.com/eiffel.jpg)
//	A: Paris
//
// A side whose whole text is a markdown image becomes image content.
package parser

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/liftingwater/MemoryVault/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
)

var imagePattern = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)\)$`)

// Entry is one card read from a deck.
type Entry struct {
	Front domain.Content
	Back  domain.Content
}

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries. Blocks missing
// either side are dropped.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var question, answer string
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(currentBlock, "\n"))
		switch currentState {
		case readingQuestion:
			question = content
		case readingAnswer:
			answer = content
		}
		// C: blocks are read and skipped.
		currentBlock = nil
	}

	finishEntry := func() {
		flushBlock()
		if question != "" && answer != "" {
			entries = append(entries, Entry{Front: toContent(question), Back: toContent(answer)})
		}
		question, answer = "", ""
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "---" {
			finishEntry()
			continue
		}

		prefix, next := "", seeking
		switch {
		case strings.HasPrefix(line, questionPrefix):
			prefix, next = questionPrefix, readingQuestion
		case strings.HasPrefix(line, answerPrefix):
			prefix, next = answerPrefix, readingAnswer
		case strings.HasPrefix(line, contextPrefix):
			prefix, next = contextPrefix, readingContext
		}

		if next == seeking {
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
			continue
		}

		if next == readingQuestion && currentState != seeking {
			// A new question always starts a new card
			finishEntry()
		} else {
			flushBlock()
		}
		currentState = next
		currentBlock = append(currentBlock, strings.TrimPrefix(line[len(prefix):], " "))
	}

	finishEntry() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func toContent(s string) domain.Content {
	if m := imagePattern.FindStringSubmatch(s); m != nil {
		return domain.Image(m[2], m[1])
	}
	return domain.Text(s)
}
