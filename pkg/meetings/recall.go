// Package meetings integrates with the recording-bot provider and turns
// finished meetings into searchable transcripts, summaries and action items.
package meetings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Word is a single transcribed word.
type Word struct {
	Text string `json:"text"`
}

// Segment is one speaker's contiguous run of words.
type Segment struct {
	Speaker string `json:"speaker"`
	Words   []Word `json:"words"`
}

// TranscriptFetcher retrieves the transcript recorded by a bot.
type TranscriptFetcher interface {
	GetTranscript(ctx context.Context, botID string) ([]Segment, error)
}

// Client talks to the recording-bot provider's HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ TranscriptFetcher = (*Client)(nil)

// NewClient creates a provider client. baseURL is the API root, without a
// trailing slash.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// GetTranscript fetches the full transcript for a bot's recording.
func (c *Client) GetTranscript(ctx context.Context, botID string) ([]Segment, error) {
	url := fmt.Sprintf("%s/api/v1/bot/%s/transcript/", c.baseURL, botID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building transcript request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transcript request failed: status %d: %s", resp.StatusCode, body)
	}

	var segments []Segment
	if err := json.NewDecoder(resp.Body).Decode(&segments); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}
	return segments, nil
}
