package deepface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for the DeepFace client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Model      string
	Detector   string
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:5005",
		Timeout:    30 * time.Second,
		Model:      "Facenet512",
		Detector:   "retinaface",
		RetryCount: 3,
	}
}

// Client is the HTTP client for the DeepFace API
type Client struct {
	httpClient *http.Client
	config     Config
	backoff    func(attempt int) time.Duration
}

// NewClient creates a new DeepFace client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config:  config,
		backoff: calculateBackoff,
	}
}

// Represent calls POST /represent to generate face embeddings. Empty model
// and detector fields fall back to the client configuration.
func (c *Client) Represent(ctx context.Context, req RepresentRequest) (*RepresentResponse, error) {
	if req.Model == "" {
		req.Model = c.config.Model
	}
	if req.Detector == "" {
		req.Detector = c.config.Detector
	}

	var resp RepresentResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/represent", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExtractFaces calls POST /extract_faces to locate faces and, optionally,
// run the anti-spoofing model on each of them.
func (c *Client) ExtractFaces(ctx context.Context, req ExtractFacesRequest) (*ExtractFacesResponse, error) {
	if req.Detector == "" {
		req.Detector = c.config.Detector
	}

	var resp ExtractFacesResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/extract_faces", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

// calculateBackoff returns 1s, 2s, 4s, 8s, etc. up to maxBackoff
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	d := time.Second << min(attempt-1, 5)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// statusError is returned for every non-2xx answer
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.Status, e.Body)
}

// isClientError reports a 4xx answer, which is never retried
func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status >= 400 && se.Status < 500
}

func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body, result any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isClientError(lastErr) || errors.Is(lastErr, ErrInvalidResponse) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrDeepFaceUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &statusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}
