package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/raphaelgruber/supportdesk/internal/metrics"
	"github.com/raphaelgruber/supportdesk/internal/models"
)

// ProgressFunc reports upload progress in bytes.
type ProgressFunc func(sent, total int64)

// ListDocuments returns the knowledge base documents.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := c.doJSON(ctx, metrics.OpDocsList, http.MethodGet, "/admin/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UploadDocument sends a file as multipart form field "file". The body is
// buffered so progress can report a known total.
func (c *Client) UploadDocument(ctx context.Context, filename, contentType string, content io.Reader, progress ProgressFunc) (*models.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	var body io.Reader = bytes.NewReader(buf.Bytes())
	if progress != nil {
		body = &progressReader{r: body, total: int64(buf.Len()), fn: progress}
	}

	var result models.UploadResult
	req := request{
		op:            metrics.OpDocsUpload,
		method:        http.MethodPost,
		path:          "/admin/upload",
		body:          body,
		contentType:   mw.FormDataContentType(),
		contentLength: int64(buf.Len()),
	}
	if err := c.do(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteDocument removes a document and its index entries.
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	return c.doJSON(ctx, metrics.OpDocsDelete, http.MethodDelete, "/admin/delete/"+url.PathEscape(docID), nil, nil)
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
