// Package web exposes the Leitner engine as a JSON HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/liftingwater/MemoryVault/internal/domain"
	"github.com/liftingwater/MemoryVault/internal/leitner"
	"github.com/liftingwater/MemoryVault/internal/sync"
)

// Version is reported by the index endpoint.
const Version = "0.2.0"

var validate = validator.New()

// Server holds the dependencies for the HTTP server.
type Server struct {
	engine *leitner.Engine
	syncer *sync.Syncer
	router chi.Router
	logger *slog.Logger
}

// NewServer creates and configures a new server. syncer may be nil, in which
// case the deck source routes are not registered.
func NewServer(engine *leitner.Engine, syncer *sync.Syncer, logger *slog.Logger) *Server {
	s := &Server{
		engine: engine,
		syncer: syncer,
		router: chi.NewRouter(),
		logger: logger.With("component", "web"),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/cards", s.handleListCards)
		r.Post("/cards", s.handleCreateCard)
		r.Get("/cards/{id}", s.handleGetCard)
		r.Put("/cards/{id}", s.handleUpdateCard)
		r.Delete("/cards/{id}", s.handleDeleteCard)
		r.Get("/cards/{id}/reviews", s.handleGetReviews)

		r.Get("/boxes", s.handleGetBoxes)
		r.Get("/boxes/{box}", s.handleGetBox)
		r.Post("/review", s.handleReview)

		if s.syncer != nil {
			r.Get("/sources", s.handleListSources)
			r.Post("/sources", s.handleAddSource)
			r.Delete("/sources/{id}", s.handleDeleteSource)
			r.Post("/sync", s.handleSync)
		}
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.respondJSON(w, status, map[string]string{"error": messageFor(err)})
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, domain.ErrMalformedContent) {
			return err
		}
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func cardID(r *http.Request) (int64, error) {
	return pathID(r, "card")
}

func pathID(r *http.Request, what string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s id", domain.ErrValidation, what)
	}
	return id, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to MemoryVault - Leitner Box System",
		"version": Version,
		"endpoints": map[string]string{
			"cards":  "/api/cards",
			"boxes":  "/api/boxes",
			"review": "/api/review",
		},
	})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.engine.Cards()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"cards": nonNil(cards), "total": len(cards)})
}

type createCardRequest struct {
	Front *domain.Content `json:"front" validate:"required"`
	Back  *domain.Content `json:"back" validate:"required"`
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	card, err := s.engine.CreateCard(*req.Front, *req.Back)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"message": "Card created", "card": card})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	card, err := s.engine.Card(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"card": card})
}

type updateCardRequest struct {
	Front *domain.Content `json:"front"`
	Back  *domain.Content `json:"back"`
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req updateCardRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	card, err := s.engine.EditCard(id, req.Front, req.Back)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"message": "Card updated", "card": card})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := cardID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.engine.DeleteCard(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Card deleted"})
}

func (s *Server) handleGetReviews(w http.ResponseWriter, r *http.Request) {
	id, err := cardID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	reviews, err := s.engine.Reviews(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []domain.ReviewLog{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"card_id": id, "reviews": reviews})
}

type boxResponse struct {
	Number    int            `json:"number"`
	CardCount int            `json:"card_count"`
	Cards     []*domain.Card `json:"cards"`
}

func (s *Server) handleGetBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.engine.Boxes()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make(map[string]boxResponse, len(boxes))
	for _, b := range boxes {
		out[fmt.Sprintf("box_%d", b.Number)] = boxResponse{
			Number:    b.Number,
			CardCount: b.Count,
			Cards:     nonNil(b.Cards),
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"boxes": out})
}

func (s *Server) handleGetBox(w http.ResponseWriter, r *http.Request) {
	box, err := strconv.Atoi(chi.URLParam(r, "box"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %q", domain.ErrInvalidBox, chi.URLParam(r, "box")))
		return
	}
	cards, err := s.engine.BoxCards(box)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, boxResponse{Number: box, CardCount: len(cards), Cards: nonNil(cards)})
}

type reviewRequest struct {
	CardID  *int64 `json:"card_id" validate:"required"`
	Correct *bool  `json:"correct" validate:"required"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.engine.ReviewCard(*req.CardID, *req.Correct)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message":    "Card reviewed",
		"card":       res.Card,
		"moved_from": res.OldBox,
		"moved_to":   res.NewBox,
	})
}

type addSourceRequest struct {
	Path string `json:"path" validate:"required"`
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := s.syncer.AddSource(req.Path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"message": "Source added", "id": id})
}

type sourceResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.syncer.Sources()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		resp := sourceResponse{ID: src.ID, Path: src.Path, Type: src.Type}
		if src.LastScanned.Valid {
			resp.LastScanned = &src.LastScanned.Time
		}
		out = append(out, resp)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"sources": out})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "source")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.syncer.RemoveSource(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Source deleted"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.syncer.Run(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"message": "Sync complete", "report": report})
}

func nonNil(cards []*domain.Card) []*domain.Card {
	if cards == nil {
		return []*domain.Card{}
	}
	return cards
}
