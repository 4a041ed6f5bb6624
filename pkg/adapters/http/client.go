package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/otsync/pkg/domain"
)

// SnapshotClient implements ports.SnapshotSource against a server built with NewHandler.
type SnapshotClient struct {
	baseURL string
	http    *http.Client
}

// NewSnapshotClient creates a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewSnapshotClient(baseURL string, httpClient *http.Client) *SnapshotClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SnapshotClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Snapshot fetches the latest snapshot of documentID.
func (c *SnapshotClient) Snapshot(ctx context.Context, documentID string) (*domain.Snapshot, error) {
	endpoint := c.baseURL + "/documents/" + url.PathEscape(documentID) + "/snapshot"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, documentID)
	default:
		return nil, fmt.Errorf("unexpected status %s fetching %s", resp.Status, documentID)
	}

	var snap domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
