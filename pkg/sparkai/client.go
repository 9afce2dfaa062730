// Package sparkai provides a Go client for the Spark AI outbound calling API.
package sparkai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the default API base URL
	DefaultBaseURL = "http://localhost:5000"
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the default number of retries for idempotent reads
	DefaultMaxRetries = 2
	// Version is the client version
	Version = "1.0.0"
)

// TokenSource returns the bearer token to attach to a request.
// An empty string means no Authorization header is sent.
type TokenSource func() string

// Client is the Spark AI API client
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	tokenSource    TokenSource
	onUnauthorized func()
	logger         zerolog.Logger

	// Resources
	Auth      *AuthService
	Campaigns *CampaignsService
	Uploads   *UploadsService
	Voices    *VoicesService
	Credits   *CreditsService
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithTimeout sets a custom timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached when
// the supplied client has none.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxRetries sets the maximum number of retries for GET requests
func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = retries
	}
}

// WithToken sets a fixed bearer token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.tokenSource = func() string { return token }
	}
}

// WithTokenSource sets a dynamic bearer token provider
func WithTokenSource(src TokenSource) ClientOption {
	return func(c *Client) {
		c.tokenSource = src
	}
}

// WithOnUnauthorized registers a hook invoked whenever any call returns 401
func WithOnUnauthorized(fn func()) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "sparkai").Logger()
	}
}

// NewClient creates a new Spark AI API client
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		tokenSource: func() string { return "" },
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}

	// The session cookie travels alongside the bearer token on every call.
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	c.Auth = &AuthService{client: c}
	c.Campaigns = &CampaignsService{client: c}
	c.Uploads = &UploadsService{client: c}
	c.Voices = &VoicesService{client: c}
	c.Credits = &CreditsService{client: c}

	return c, nil
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FilePart is a file attached to a multipart request
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// RequestOptions contains options for an API request
type RequestOptions struct {
	Method  string
	Path    string
	Body    interface{}
	Params  map[string]string
	Headers map[string]string

	// Form and Files switch the request to multipart/form-data.
	Form  map[string]string
	Files []FilePart
}

func (o RequestOptions) multipart() bool {
	return len(o.Files) > 0 || len(o.Form) > 0
}

// doRequest performs an HTTP request, retrying idempotent reads
func (c *Client) doRequest(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	retries := c.maxRetries
	if opts.Method != http.MethodGet {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.executeRequest(ctx, opts, body, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &NetworkError{Op: opts.Method + " " + opts.Path, Err: ctx.Err()}
			}
			lastErr = &NetworkError{Op: opts.Method + " " + opts.Path, Err: err}
			continue
		}

		if attempt < retries && (resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests) {
			lastErr = &APIError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("Server error: %d", resp.StatusCode),
			}
			resp.Body.Close()
			c.logger.Debug().
				Str("path", opts.Path).
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Msg("Retrying request")
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// encodeBody renders the request payload once so retries can replay it
func encodeBody(opts RequestOptions) ([]byte, string, error) {
	if opts.multipart() {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range opts.Form {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
			}
		}
		for _, f := range opts.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create form file: %w", err)
			}
			if _, err := io.Copy(part, f.Content); err != nil {
				return nil, "", fmt.Errorf("failed to copy %s: %w", f.Filename, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	}

	if opts.Body == nil {
		return nil, "application/json", nil
	}
	jsonBody, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return jsonBody, "application/json", nil
}

// executeRequest performs a single HTTP request
func (c *Client) executeRequest(ctx context.Context, opts RequestOptions, body []byte, contentType string) (*http.Response, error) {
	reqURL := c.baseURL + opts.Path
	if len(opts.Params) > 0 {
		params := url.Values{}
		for k, v := range opts.Params {
			params.Set(k, v)
		}
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if token := c.tokenSource(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sparkai-go/"+Version)
	req.Header.Set("X-Request-ID", uuid.NewString())

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	return c.httpClient.Do(req)
}

// Request performs an API request and decodes the response
func (c *Client) Request(ctx context.Context, opts RequestOptions, result interface{}) error {
	resp, err := c.doRequest(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: opts.Method + " " + opts.Path, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		apiErr := parseError(resp.StatusCode, bodyBytes, resp.Header)
		var authErr *AuthenticationError
		if errors.As(apiErr, &authErr) && c.onUnauthorized != nil {
			c.logger.Warn().Str("path", opts.Path).Msg("Unauthorized response, dropping session")
			c.onUnauthorized()
		}
		return apiErr
	}

	if result != nil && len(bytes.TrimSpace(bodyBytes)) > 0 {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorBody accepts the error shapes the backend emits:
// {"error":{"message","code"}}, {"error":"..."} and {"message":"..."}.
type errorBody struct {
	Message string
	Code    string
	Details map[string]interface{}
}

func (e *errorBody) UnmarshalJSON(data []byte) error {
	var raw struct {
		Error   json.RawMessage        `json:"error"`
		Message string                 `json:"message"`
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Message, e.Code, e.Details = raw.Message, raw.Code, raw.Details

	if len(raw.Error) == 0 {
		return nil
	}
	var nested struct {
		Message string                 `json:"message"`
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	}
	if err := json.Unmarshal(raw.Error, &nested); err == nil {
		if nested.Message != "" {
			e.Message = nested.Message
		}
		if nested.Code != "" {
			e.Code = nested.Code
		}
		if nested.Details != nil {
			e.Details = nested.Details
		}
		return nil
	}
	var flat string
	if err := json.Unmarshal(raw.Error, &flat); err == nil && e.Message == "" {
		e.Message = flat
	}
	return nil
}

// parseError parses an error response
func parseError(statusCode int, body []byte, headers http.Header) error {
	var errResp errorBody
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		errResp.Message = strings.TrimSpace(string(body))
		if errResp.Message == "" {
			errResp.Message = http.StatusText(statusCode)
		}
	}

	base := APIError{
		StatusCode: statusCode,
		Message:    errResp.Message,
		Code:       errResp.Code,
	}

	// Quota exhaustion is classified here so callers never sniff messages.
	if isInsufficientCredits(statusCode, errResp.Code, errResp.Message) {
		return &InsufficientCreditsError{APIError: base}
	}

	switch statusCode {
	case 401:
		return &AuthenticationError{APIError: base}
	case 403:
		return &PermissionError{APIError: base}
	case 404:
		return &NotFoundError{APIError: base}
	case 400, 422:
		return &ValidationError{APIError: base, Errors: errResp.Details}
	case 429:
		retryAfter := 60
		if ra := headers.Get("Retry-After"); ra != "" {
			if val, err := strconv.Atoi(ra); err == nil {
				retryAfter = val
			}
		}
		return &RateLimitError{APIError: base, RetryAfter: retryAfter}
	default:
		return &base
	}
}

func isInsufficientCredits(statusCode int, code, message string) bool {
	if statusCode == http.StatusPaymentRequired || code == CodeInsufficientCredits {
		return true
	}
	return strings.Contains(strings.ToLower(message), "insufficient credit")
}
