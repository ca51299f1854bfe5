// Package docs manages the knowledge base documents the answering service
// draws on: listing, PDF upload, and deletion.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/raphaelgruber/supportdesk/internal/client"
	"github.com/raphaelgruber/supportdesk/internal/models"
	"github.com/raphaelgruber/supportdesk/internal/toast"
)

const pdfMIME = "application/pdf"

// ValidationError rejects a file before any request is made.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid file %s: %s", e.File, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Service is the backend document API.
type Service interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UploadDocument(ctx context.Context, filename, contentType string, content io.Reader, progress client.ProgressFunc) (*models.UploadResult, error)
	DeleteDocument(ctx context.Context, docID string) error
}

// Library is the local document list. All methods are safe for concurrent use.
type Library struct {
	svc    Service
	toasts *toast.Store
	logger *slog.Logger

	mu   sync.Mutex
	docs []models.Document
}

// NewLibrary creates an empty library. toasts may be nil.
func NewLibrary(svc Service, toasts *toast.Store, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{svc: svc, toasts: toasts, logger: logger}
}

// Load replaces the local list with the backend's.
func (l *Library) Load(ctx context.Context) error {
	docs, err := l.svc.ListDocuments(ctx)
	if err != nil {
		l.logger.Error("failed to load documents", "error", err)
		l.toasts.Error("Error", "Failed to load documents")
		return fmt.Errorf("load documents: %w", err)
	}

	l.mu.Lock()
	l.docs = slices.Clone(docs)
	l.mu.Unlock()
	return nil
}

// Documents returns a copy of the local list.
func (l *Library) Documents() []models.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.docs)
}

// Validate checks that path names a readable PDF by extension and content.
func Validate(path string) error {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return &ValidationError{File: name, Reason: "only PDF files are allowed"}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return &ValidationError{File: name, Reason: err.Error()}
	}
	if !mt.Is(pdfMIME) {
		return &ValidationError{File: name, Reason: fmt.Sprintf("only PDF files are allowed (content is %s)", mt.String())}
	}
	return nil
}

// Upload validates and sends a PDF, then reloads the list. progress may be nil.
func (l *Library) Upload(ctx context.Context, path string, progress client.ProgressFunc) (*models.UploadResult, error) {
	if err := Validate(path); err != nil {
		l.toasts.Error("Invalid file", "Only PDF files are allowed")
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	res, err := l.svc.UploadDocument(ctx, name, pdfMIME, f, progress)
	if err != nil {
		l.logger.Error("upload failed", "file", name, "error", err)
		l.toasts.Error("Upload failed", uploadFailure(err))
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}

	l.logger.Info("document uploaded", "file", name, "doc_id", res.DocID)
	l.toasts.Success("Upload successful", "Document is being indexed")

	if err := l.Load(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Delete removes a document on the backend, then reloads the list.
func (l *Library) Delete(ctx context.Context, docID string) error {
	if err := l.svc.DeleteDocument(ctx, docID); err != nil {
		l.logger.Error("delete failed", "doc_id", docID, "error", err)
		l.toasts.Error("Error", "Failed to delete document")
		return fmt.Errorf("delete document %s: %w", docID, err)
	}

	l.logger.Info("document deleted", "doc_id", docID)
	l.toasts.Success("Document deleted", "The document was removed from the knowledge base.")
	return l.Load(ctx)
}

// uploadFailure prefers the backend's detail message.
func uploadFailure(err error) string {
	var se *client.ServiceError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return "Something went wrong"
}
