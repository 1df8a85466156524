// Package httpfile fetches answer-sheet scans by URL.
package httpfile

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// extMIME maps known scan extensions to their MIME types. Anything else falls
// back to content sniffing, then to image/jpeg.
var extMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// DefaultMIME is used when neither extension nor content identify the payload.
const DefaultMIME = "image/jpeg"

// Fetcher implements domain.FileFetcher over plain HTTP GET.
type Fetcher struct {
	hc       *http.Client
	maxBytes int64
}

// New constructs a Fetcher with the given request timeout and size cap.
func New(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		hc:       &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads the file and resolves its MIME type.
func (f *Fetcher) Fetch(ctx domain.Context, fileURL string) ([]byte, string, error) {
	if strings.TrimSpace(fileURL) == "" {
		return nil, "", fmt.Errorf("%w: file url required", domain.ErrInvalidArgument)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("op=file.fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return nil, "", fmt.Errorf("op=file.fetch url=%s: %w", fileURL, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("op=file.fetch url=%s: status %d", fileURL, resp.StatusCode)
	}

	// Read one byte past the cap so an over-limit file fails instead of
	// shipping a silently truncated scan to the model.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("op=file.read: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("op=file.fetch url=%s: %w: file exceeds %d bytes",
			fileURL, domain.ErrInvalidArgument, f.maxBytes)
	}
	return data, ResolveMIME(fileURL, data), nil
}

// ResolveMIME derives the MIME type from the URL's extension, then from the
// content when the extension is unrecognized.
func ResolveMIME(fileURL string, data []byte) string {
	ext := ""
	if u, err := url.Parse(fileURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if m, ok := extMIME[ext]; ok {
		return m
	}
	if m := mimetype.Detect(data); m != nil {
		s := m.String()
		if s != "" && s != "application/octet-stream" {
			return s
		}
	}
	return DefaultMIME
}
