package models

import "time"

// DocumentStatus is the indexing state of an uploaded document.
type DocumentStatus string

const (
	DocumentProcessing DocumentStatus = "processing"
	DocumentIndexed    DocumentStatus = "indexed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is a knowledge base file as listed by GET /admin/documents.
type Document struct {
	ID         string         `json:"id"`
	DocID      string         `json:"doc_id,omitempty"`
	Name       string         `json:"name"`
	Filename   string         `json:"filename,omitempty"`
	Status     DocumentStatus `json:"status"`
	Size       int64          `json:"size"`
	UploadDate time.Time      `json:"upload_date"`
	ChunkCount int            `json:"chunk_count,omitempty"`
}

// Key returns the identifier used by DELETE /admin/delete/{id}.
func (d Document) Key() string {
	if d.DocID != "" {
		return d.DocID
	}
	return d.ID
}

// UploadResult is returned by POST /admin/upload. Size is a display
// string such as "1.25 MB".
type UploadResult struct {
	DocID      string    `json:"doc_id"`
	Name       string    `json:"name"`
	Size       string    `json:"size"`
	UploadDate time.Time `json:"upload_date"`
	Message    string    `json:"message"`
	Success    bool      `json:"success"`
}
