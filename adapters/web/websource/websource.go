package websource

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ProjectAlita/indexpipe/document"
	"github.com/ProjectAlita/indexpipe/source"
)

// WebSource loads documents from a fixed set of URLs. LoadBase probes each
// URL with a HEAD request to derive a change marker from validator headers;
// page bodies are fetched only through ResolveContent. URLs that expose
// neither an ETag nor a Last-Modified header carry no marker and are
// re-indexed on every run.
type WebSource struct {
	urls   []string
	client *http.Client
}

func NewWebSource(urls []string, timeout time.Duration) *WebSource {
	return &WebSource{
		urls: urls,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// LoadBase returns one descriptor per configured URL.
func (w *WebSource) LoadBase(ctx context.Context, opts ...source.Option) ([]document.Document, error) {
	options := &source.LoadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var documents []document.Document
	for _, url := range w.urls {
		if options.MaxItems > 0 && len(documents) >= options.MaxItems {
			break
		}

		metadata := map[string]interface{}{
			"url":    url,
			"source": url,
		}
		if options.Filter != nil && !options.Filter(metadata) {
			continue
		}

		documents = append(documents, document.Document{
			ID:          url,
			Kind:        document.KindBase,
			UpdatedOn:   w.probeMarker(ctx, url),
			ContentType: ".html",
			Metadata:    metadata,
		})
	}

	return documents, nil
}

// probeMarker derives a change marker from the URL's validator headers. Any
// probe failure yields an empty marker, which the pipeline treats as changed.
func (w *WebSource) probeMarker(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ""
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		return etag
	}
	return resp.Header.Get("Last-Modified")
}

// ResolveContent fetches the page body for a descriptor produced by LoadBase.
func (w *WebSource) ResolveContent(ctx context.Context, doc *document.Document) (string, []byte, error) {
	url, _ := doc.Metadata["url"].(string)
	if url == "" {
		url = doc.ID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, &source.SourceError{
			Source:  "web",
			Op:      "ResolveContent",
			Err:     err,
			Code:    source.ErrCodeInvalidSource,
			Message: "invalid URL",
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", nil, &source.SourceError{
			Source:  "web",
			Op:      "ResolveContent",
			Err:     err,
			Code:    source.ErrCodeInternal,
			Message: "failed to fetch URL",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &source.SourceError{
			Source:  "web",
			Op:      "ResolveContent",
			Code:    source.ErrCodeNotFound,
			Message: "failed to fetch URL: " + resp.Status,
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, &source.SourceError{
			Source:  "web",
			Op:      "ResolveContent",
			Err:     err,
			Code:    source.ErrCodeInternal,
			Message: "failed to read response body",
		}
	}

	return ".html", content, nil
}
