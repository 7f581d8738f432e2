// Package api is the HTTP client for the classification backend.
// It never retries: every failure is terminal for the call and reported to the
// caller, which decides what to display.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"cry2care/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBodySnippet bounds the response text kept on an APIError.
const maxBodySnippet = 512

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// ErrOffline wraps transport failures: the backend could not be reached.
var ErrOffline = errors.New("backend unreachable")

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes

	// Result is set when the error body decoded as a prediction result.
	Result *model.PredictionResult
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Audio is a file-like blob submitted for classification.
type Audio struct {
	Filename string
	Data     []byte
}

// Health is the /health response.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ServiceInfo is the / index response.
type ServiceInfo struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// Client talks to one backend base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for baseURL (e.g. "http://localhost:5000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchLogs returns the backend's recent event list. A body that is valid JSON
// but not an array yields an empty list and no error; array elements that do
// not decode are skipped.
func (c *Client) FetchLogs(ctx context.Context) ([]model.LogEntry, error) {
	body, err := c.get(ctx, "/logs")
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Warn("logs response is not an array", zap.String("body", snippet(body)))
		return []model.LogEntry{}, nil
	}

	entries := make([]model.LogEntry, 0, len(raw))
	for i, item := range raw {
		var e model.LogEntry
		if err := json.Unmarshal(item, &e); err != nil {
			c.logger.Warn("skipping malformed log entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Predict uploads audio as multipart field "file" and returns the backend's
// classification. A non-2xx response returns *APIError; when its body is a
// prediction-shaped error document, APIError.Result carries it.
func (c *Client) Predict(ctx context.Context, audio Audio) (model.PredictionResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := audio.Filename
	if name == "" {
		name = "recording.wav"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	if err != nil {
		return model.PredictionResult{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return model.PredictionResult{}, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.PredictionResult{}, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &buf)
	if err != nil {
		return model.PredictionResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	status, body, err := c.do(req)
	if err != nil {
		return model.PredictionResult{}, err
	}

	var result model.PredictionResult
	decodeErr := json.Unmarshal(body, &result)

	if status < 200 || status >= 300 {
		apiErr := &APIError{StatusCode: status, Body: snippet(body)}
		if decodeErr == nil && result.Failed() {
			apiErr.Result = &result
		}
		return model.PredictionResult{}, apiErr
	}
	if decodeErr != nil {
		return model.PredictionResult{}, fmt.Errorf("decode prediction: %w", decodeErr)
	}
	return result, nil
}

// Health queries /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	body, err := c.get(ctx, "/health")
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return h, fmt.Errorf("decode health: %w", err)
	}
	return h, nil
}

// Index queries the service description at the base URL.
func (c *Client) Index(ctx context.Context) (ServiceInfo, error) {
	var info ServiceInfo
	body, err := c.get(ctx, "/")
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return info, fmt.Errorf("decode index: %w", err)
	}
	return info, nil
}

// get sends a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: snippet(body)}
	}
	return body, nil
}

// do executes req once and reads the whole body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	log := c.logger.With(
		zap.String("request_id", reqID),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			log.Debug("request cancelled", zap.Error(ctxErr))
			return 0, nil, ctxErr
		}
		log.Warn("request failed", zap.Error(err))
		return 0, nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("reading response failed", zap.Error(err))
		return 0, nil, fmt.Errorf("%w: %v", ErrOffline, err)
	}

	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("bytes", len(body)),
	)
	return resp.StatusCode, body, nil
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > maxBodySnippet {
		s = s[:maxBodySnippet]
	}
	return s
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
