package scandocs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
	"market-scanner/pkg/utils"
)

// HTTPSource fetches scan documents as JSON over HTTP, retrying transient
// failures with exponential backoff.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	retry   utils.RetryConfig
}

// NewHTTPSource creates an HTTP document source rooted at baseURL.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		retry:   utils.DefaultRetryConfig(),
	}
}

// Fetch retrieves one document from <baseURL>/docs/<name>.json.
func (s *HTTPSource) Fetch(ctx context.Context, name string) (models.ScanDocument, error) {
	url := fmt.Sprintf("%s/docs/%s.json", s.baseURL, name)

	doc, err := utils.RetryWithResult(ctx, s.retry, func() (models.ScanDocument, error) {
		return s.fetchOnce(ctx, url)
	})
	if err != nil {
		return models.ScanDocument{}, errors.NewDocumentError(name, "fetch", err)
	}
	return doc, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context, url string) (models.ScanDocument, error) {
	var doc models.ScanDocument

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return doc, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return doc, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decoding body: %w", err)
	}
	return doc, nil
}
