package sync

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftingwater/MemoryVault/internal/domain"
	"github.com/liftingwater/MemoryVault/internal/leitner"
	"github.com/liftingwater/MemoryVault/internal/storage"
)

func newTestSyncer(t *testing.T) (*Syncer, *leitner.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := storage.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine, err := leitner.NewEngine(db, db, leitner.WithLogger(logger))
	require.NoError(t, err)
	return New(db, engine, t.TempDir(), logger), engine
}

func writeDeck(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunImportsAndReconciles(t *testing.T) {
	s, engine := newTestSyncer(t)
	decks := t.TempDir()
	writeDeck(t, decks, "math.md", "Q: 2+2\nA: 4\n---\nQ: 3+3\nA: 6\n")
	writeDeck(t, decks, "animals.MD", "Q: ![a cat](http://x/cat.png)\nA: cat\n")
	writeDeck(t, decks, "notes.txt", "Q: ignored\nA: ignored\n")

	_, err := s.AddSource(decks)
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Sources: 1, Created: 3}, report)

	cards, err := engine.Cards()
	require.NoError(t, err)
	require.Len(t, cards, 3)
	for _, card := range cards {
		assert.Equal(t, 1, card.Box)
	}

	// Reviews survive a re-sync of unchanged content.
	var sum *domain.Card
	for _, card := range cards {
		if card.Front == domain.Text("2+2") {
			sum = card
		}
	}
	require.NotNil(t, sum)
	_, err = engine.ReviewCard(sum.ID, true)
	require.NoError(t, err)

	report, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Sources: 1}, report)

	got, err := engine.Card(sum.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Box)

	// Removing an entry deletes its card and its box entry.
	writeDeck(t, decks, "math.md", "Q: 3+3\nA: 6\n")
	report, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Sources: 1, Deleted: 1}, report)

	_, err = engine.Card(sum.ID)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	require.NoError(t, engine.Verify())
}

func TestRunDeletedCardIsReimported(t *testing.T) {
	s, engine := newTestSyncer(t)
	decks := t.TempDir()
	writeDeck(t, decks, "deck.md", "Q: a\nA: b\n")

	_, err := s.AddSource(decks)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	cards, err := engine.Cards()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.NoError(t, engine.DeleteCard(cards[0].ID))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	cards, err = engine.Cards()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, int64(2), cards[0].ID)
}

func TestRunWithoutSources(t *testing.T) {
	s, _ := newTestSyncer(t)
	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
}

func TestRunMissingDirectory(t *testing.T) {
	s, _ := newTestSyncer(t)
	_, err := s.AddSource(filepath.Join(t.TempDir(), "gone"))
	require.NoError(t, err)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
}

func TestAddSource(t *testing.T) {
	s, _ := newTestSyncer(t)

	_, err := s.AddSource("")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.AddSource("https://github.com/user/decks.git")
	require.NoError(t, err)
	src, err := s.db.FindSourceByPath("https://github.com/user/decks.git")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, storage.SourceGit, src.Type)

	_, err = s.AddSource("https://github.com/user/decks.git")
	assert.ErrorIs(t, err, ErrSourceExists)

	local, err := s.AddSource(t.TempDir())
	require.NoError(t, err)
	sources, err := s.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, storage.SourceLocal, sources[1].Type)

	require.NoError(t, s.RemoveSource(local))
	sources, err = s.Sources()
	require.NoError(t, err)
	assert.Len(t, sources, 1)
	assert.ErrorIs(t, s.RemoveSource(local), storage.ErrSourceNotFound)
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		url, want string
		wantErr   bool
	}{
		{url: "https://github.com/user/decks.git", want: filepath.Join("repos", "github.com", "user", "decks")},
		{url: "git@github.com:user/decks.git", want: filepath.Join("repos", "github.com", "user", "decks")},
		{url: "ssh://git@host.example/decks", want: filepath.Join("repos", "host.example", "decks")},
		{url: "not a url", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := gitURLToLocalPath("repos", tc.url)
		if tc.wantErr {
			assert.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got)
	}
}
