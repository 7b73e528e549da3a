// Package music talks to the external track-search provider. Lookups
// happen outside any store transaction, before the transactional write
// that records a nomination.
package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Track is provider metadata for one searchable song.
type Track struct {
	TrackID       string `json:"trackId"`
	Name          string `json:"name"`
	Artist        string `json:"artist"`
	PreviewURL    string `json:"previewUrl"`
	AlbumImageURL string `json:"albumImageUrl"`
	Explicit      bool   `json:"explicit"`
}

// Client searches the provider catalog. When allowExplicit is false
// explicit tracks are filtered out of the results.
type Client interface {
	Search(ctx context.Context, query string, allowExplicit bool) ([]Track, error)
}

// HTTPClient queries an iTunes-style search API.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// searchResult mirrors the provider's wire format.
type searchResult struct {
	Results []struct {
		TrackID           int64  `json:"trackId"`
		TrackName         string `json:"trackName"`
		ArtistName        string `json:"artistName"`
		PreviewURL        string `json:"previewUrl"`
		ArtworkURL        string `json:"artworkUrl100"`
		TrackExplicitness string `json:"trackExplicitness"`
	} `json:"results"`
}

func (c *HTTPClient) Search(ctx context.Context, query string, allowExplicit bool) ([]Track, error) {
	q := url.Values{}
	q.Set("term", query)
	q.Set("media", "music")
	q.Set("entity", "song")
	q.Set("limit", "25")
	if !allowExplicit {
		q.Set("explicit", "No")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("track search returned status %d", resp.StatusCode)
	}

	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	tracks := make([]Track, 0, len(result.Results))
	for _, r := range result.Results {
		explicit := r.TrackExplicitness == "explicit"
		if explicit && !allowExplicit {
			continue
		}
		tracks = append(tracks, Track{
			TrackID:       fmt.Sprintf("%d", r.TrackID),
			Name:          r.TrackName,
			Artist:        r.ArtistName,
			PreviewURL:    r.PreviewURL,
			AlbumImageURL: r.ArtworkURL,
			Explicit:      explicit,
		})
	}
	return tracks, nil
}
