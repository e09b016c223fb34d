// Package fetch is the shared HTTP download helper for the feed adapters.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Body performs a GET and returns the response body for streaming decode.
// The caller owns closing it. Non-200 statuses are errors; the feeds have no
// meaningful partial responses.
func Body(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, body)
	}

	return resp.Body, nil
}
