package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultFetchTimeout = 60 * time.Second

// Fetcher downloads document bytes over HTTP. Remote documents can be
// large PDFs behind slow origins, hence the long default timeout.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build document request: %w", err)
	}
	rsp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fetch document status: %d, url: %s", rsp.StatusCode, url)
	}
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	return data, nil
}
