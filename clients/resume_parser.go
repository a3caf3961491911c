package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ResumeExtract is what the external parser pulls out of a resume.
type ResumeExtract struct {
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
}

// ResumeParserClient posts a resume URL to an extraction service.
type ResumeParserClient struct {
	endpoint string
	client   *http.Client
}

func NewResumeParserClient(endpoint string) *ResumeParserClient {
	return &ResumeParserClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *ResumeParserClient) Extract(ctx context.Context, resumeURL string) (*ResumeExtract, error) {
	if c.endpoint == "" {
		return nil, errors.New("resume parser not configured")
	}

	body, err := json.Marshal(map[string]string{"url": resumeURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resume parser request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("resume parser error (%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ResumeExtract
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
