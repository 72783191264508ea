// Package sync imports markdown decks from registered sources into the
// Leitner boxes and removes cards whose source entry has gone.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/liftingwater/MemoryVault/internal/domain"
	"github.com/liftingwater/MemoryVault/internal/gitsource"
	"github.com/liftingwater/MemoryVault/internal/knol"
	"github.com/liftingwater/MemoryVault/internal/leitner"
	"github.com/liftingwater/MemoryVault/internal/parser"
	"github.com/liftingwater/MemoryVault/internal/storage"
)

// ErrSourceExists is returned when a path is registered twice.
var ErrSourceExists = errors.New("source already exists")

// Report summarises a sync run.
type Report struct {
	Sources int `json:"sources"`
	Created int `json:"created"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// Syncer reconciles deck sources with the card store.
type Syncer struct {
	db       *storage.DB
	engine   *leitner.Engine
	reposDir string
	logger   *slog.Logger
}

// New returns a Syncer that checks git sources out under reposDir.
func New(db *storage.DB, engine *leitner.Engine, reposDir string, logger *slog.Logger) *Syncer {
	return &Syncer{
		db:       db,
		engine:   engine,
		reposDir: reposDir,
		logger:   logger.With("component", "sync"),
	}
}

// AddSource registers a local directory or git URL and returns its id.
func (s *Syncer) AddSource(path string) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: source path cannot be empty", domain.ErrValidation)
	}
	existing, err := s.db.FindSourceByPath(path)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fmt.Errorf("%w: %s (id %d)", ErrSourceExists, path, existing.ID)
	}

	sourceType := storage.SourceLocal
	if gitsource.IsGitURL(path) {
		sourceType = storage.SourceGit
	}
	id, err := s.db.InsertSource(path, sourceType)
	if err != nil {
		return 0, err
	}
	s.logger.Info("source added", "id", id, "type", sourceType, "path", path)
	return id, nil
}

// Sources returns every registered source ordered by id.
func (s *Syncer) Sources() ([]storage.Source, error) {
	return s.db.GetAllSources()
}

// RemoveSource forgets a source. Cards imported from it stay in their boxes
// and are no longer touched by sync.
func (s *Syncer) RemoveSource(id int64) error {
	if err := s.db.DeleteSource(id); err != nil {
		return err
	}
	s.logger.Info("source removed", "id", id)
	return nil
}

// Run iterates over all sources and reconciles them.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	var report Report

	s.logger.Info("starting sync for all sources")
	sources, err := s.db.GetAllSources()
	if err != nil {
		return report, fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return report, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		report.Sources++

		dir := source.Path
		if source.Type == storage.SourceGit {
			dir, err = gitURLToLocalPath(s.reposDir, source.Path)
			if err != nil {
				s.logger.Error("error determining local path for git repo", "url", source.Path, "error", err)
				report.Errors++
				continue
			}
			if err := os.MkdirAll(filepath.Dir(dir), os.ModePerm); err != nil {
				s.logger.Error("failed to create repos directory", "error", err)
				report.Errors++
				continue
			}
			if err := gitsource.Sync(ctx, s.logger, source.Path, dir); err != nil {
				s.logger.Error("error syncing git repo", "url", source.Path, "error", err)
				report.Errors++
				continue
			}
		}

		s.reconcile(source.ID, dir, &report)
	}

	s.logger.Info("sync complete",
		"sources", report.Sources,
		"created", report.Created,
		"deleted", report.Deleted,
		"errors", report.Errors,
	)
	return report, nil
}

func (s *Syncer) reconcile(sourceID int64, dir string, report *Report) {
	origins, err := s.db.GetOriginsBySourceID(sourceID)
	if err != nil {
		s.logger.Error("error getting origins for source", "source_id", sourceID, "error", err)
		report.Errors++
		return
	}
	known := make(map[string]int64, len(origins))
	for _, o := range origins {
		known[o.Hash] = o.CardID
	}

	found := make(map[string]bool)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			s.logger.Warn("failed to parse deck file", "path", path, "error", parseErr)
			report.Errors++
			return nil
		}
		for _, entry := range entries {
			hash := knol.Hash(entry.Front, entry.Back)
			if found[hash] {
				continue
			}
			found[hash] = true
			if _, ok := known[hash]; ok {
				continue
			}

			card, err := s.engine.CreateCard(entry.Front, entry.Back)
			if err != nil {
				s.logger.Warn("failed to create card", "path", path, "hash", hash, "error", err)
				report.Errors++
				continue
			}
			if err := s.db.InsertOrigin(storage.Origin{CardID: card.ID, SourceID: sourceID, Hash: hash}); err != nil {
				s.logger.Warn("failed to record card origin", "card_id", card.ID, "error", err)
				report.Errors++
				continue
			}
			s.logger.Debug("new card imported", "card_id", card.ID, "hash", hash)
			report.Created++
		}
		return nil
	})
	if walkErr != nil {
		s.logger.Error("error walking directory", "path", dir, "error", walkErr)
		report.Errors++
		return
	}

	for hash, cardID := range known {
		if found[hash] {
			continue
		}
		s.logger.Info("orphaned card, deleting", "card_id", cardID, "hash", hash)
		err := s.engine.DeleteCard(cardID)
		switch {
		case errors.Is(err, domain.ErrCardNotFound):
			if err := s.db.DeleteOrigin(cardID); err != nil {
				s.logger.Warn("failed to delete stale origin", "card_id", cardID, "error", err)
			}
		case err != nil:
			s.logger.Warn("failed to delete orphaned card", "card_id", cardID, "error", err)
			report.Errors++
		default:
			report.Deleted++
		}
	}

	if err := s.db.UpdateSourceLastScanned(sourceID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last scanned for source", "source_id", sourceID, "error", err)
	}
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http" && parsedURL.Scheme != "ssh") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
