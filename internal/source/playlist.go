// Package source downloads playlist documents.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/httpclient"
	"github.com/cesargomez89/iptvcatalog/internal/metrics"
)

// Credentials locate and authenticate the playlist endpoint.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// RequestURL returns URL with username and password added to its query when set.
func (c Credentials) RequestURL() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("invalid playlist URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid playlist URL scheme %q", u.Scheme)
	}

	q := u.Query()
	if c.Username != "" {
		q.Set("username", c.Username)
	}
	if c.Password != "" {
		q.Set("password", c.Password)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type PlaylistClient struct {
	client *httpclient.Client
}

func NewPlaylistClient(client *httpclient.Client) *PlaylistClient {
	if client == nil {
		client = httpclient.NewClient(nil, constants.DefaultRequestRate)
	}
	return &PlaylistClient{client: client}
}

// Fetch downloads the whole playlist document. Only a complete 200 response
// body is returned.
func (p *PlaylistClient) Fetch(ctx context.Context, creds Credentials) ([]byte, error) {
	target, err := creds.RequestURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build playlist request: %w", err)
	}
	req.Header.Set("Accept", constants.MimeTypeJSON)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		metrics.PlaylistFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.PlaylistFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("playlist request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PlaylistFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read playlist body: %w", err)
	}

	metrics.PlaylistFetches.WithLabelValues("ok").Inc()
	return body, nil
}
