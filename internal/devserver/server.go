// Package devserver is an in-memory implementation of the support backend's
// HTTP API, for local runs and end-to-end tests of the client.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// DefaultKeywords escalate a chat turn to a ticket.
var DefaultKeywords = []string{"human", "agent", "refund", "complaint"}

const (
	defaultActivityLimit = 10
	maxActivityLimit     = 50
	maxUploadBytes       = 32 << 20
)

// Config holds dev server settings.
type Config struct {
	Addr          string
	AdminEmail    string
	AdminPassword string
}

// Server serves the support API from a Store.
type Server struct {
	cfg      Config
	store    *Store
	logger   *slog.Logger
	validate *validator.Validate
	srv      *http.Server

	mu     sync.Mutex
	tokens map[string]struct{}
}

// New creates a server. logger may be nil.
func New(cfg Config, store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		validate: validator.New(),
		tokens:   make(map[string]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("GET /admin/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("POST /admin/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("POST /admin/upload", s.requireAuth(s.handleUpload))
	mux.HandleFunc("GET /admin/documents", s.requireAuth(s.handleListDocuments))
	mux.HandleFunc("DELETE /admin/delete/{id}", s.requireAuth(s.handleDeleteDocument))
	mux.HandleFunc("GET /admin/activity", s.requireAuth(s.handleActivity))
	mux.HandleFunc("GET /tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /tickets/stats", s.requireAuth(s.handleStats))
	mux.HandleFunc("POST /tickets/resolve", s.requireAuth(s.handleResolve))
	mux.HandleFunc("DELETE /tickets/{id}", s.requireAuth(s.handleDeleteTicket))

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           LoggingMiddleware(logger)(corsMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutCtx); err != nil {
			s.logger.Error("server forced to shutdown", "error", err)
		}
	}()

	s.logger.Info("dev server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dev server: %w", err)
	}
	s.logger.Info("dev server stopped")
	return nil
}

// Handler returns the root handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !s.validToken(token) {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r)
	}
}

func (s *Server) validToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, http.StatusOK, s.store.Answer(req))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !strings.EqualFold(req.Email, s.cfg.AdminEmail) || req.Password != s.cfg.AdminPassword {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      "admin",
		Email:       s.cfg.AdminEmail,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Admin{ID: "admin", Email: s.cfg.AdminEmail, Name: "Admin"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleListTickets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Tickets())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.TicketID) == "" {
		writeError(w, http.StatusBadRequest, "Ticket ID is required")
		return
	}
	if err := s.store.Resolve(req.TicketID, req.AdminRemarks); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Ticket resolved successfully"})
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTicket(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Ticket deleted successfully"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") || !mimetype.Detect(content).Is("application/pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	doc := s.store.AddDocument(name, int64(len(content)))
	writeJSON(w, http.StatusOK, models.UploadResult{
		DocID:      doc.DocID,
		Name:       doc.Name,
		Size:       fmt.Sprintf("%.2f MB", float64(doc.Size)/1024/1024),
		UploadDate: doc.UploadDate,
		Message:    "Document uploaded and indexing started",
		Success:    true,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Documents())
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDocument(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	limit = max(1, min(limit, maxActivityLimit))
	writeJSON(w, http.StatusOK, s.store.Activity(limit))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError uses the {"detail": "..."} body the client expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
