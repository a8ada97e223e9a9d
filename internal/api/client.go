package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rana718/Portal/internal/apperrors"
	"github.com/Rana718/Portal/internal/logger"
	"github.com/Rana718/Portal/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config holds configuration for a portal API client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// RateLimit is the number of requests per second, 0 disables limiting.
	RateLimit float64
	RateBurst int

	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client talks to the data portal REST backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	} else {
		c.log = logger.Component("api")
	}
	return c
}

// response is a decoded non-2xx or 2xx reply.
type response struct {
	status int
	body   []byte
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	begin := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status_code", resp.StatusCode).
		Dur("elapsed", time.Since(begin)).
		Msg("request")

	return &response{status: resp.StatusCode, body: data}, nil
}

// call performs a non-mutation request and decodes a 2xx body into out.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassNetwork, op, err)
	}
	if resp.status < 200 || resp.status > 299 {
		return classify(op, resp, false)
	}
	return decode(op, resp, out)
}

// mutate performs an insert/update/delete style request. A plain 404 is retried once
// against the same path with a trailing slash; a 404 naming a missing query is not.
func (c *Client) mutate(ctx context.Context, op, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, nil, body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassNetwork, op, err)
	}

	if resp.status == http.StatusNotFound && !isQueryNotFound(detailOf(resp.body)) && !strings.HasSuffix(path, "/") {
		c.log.Warn().Str("operation", op).Str("path", path).Msg("404 on mutation, retrying with trailing slash")
		resp, err = c.send(ctx, method, path+"/", nil, body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrClassNetwork, op, err)
		}
	}

	if resp.status < 200 || resp.status > 299 {
		return classify(op, resp, true)
	}
	return decode(op, resp, out)
}

func decode(op string, resp *response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return apperrors.Wrap(apperrors.ErrClassServer, op, fmt.Errorf("failed to decode response: %w", err)).
			WithStatus(resp.status, "")
	}
	return nil
}

func classify(op string, resp *response, mutation bool) error {
	detail := detailOf(resp.body)
	class := apperrors.ErrClassServer
	switch resp.status {
	case http.StatusNotFound:
		class = apperrors.ErrClassNotFound
		if mutation && isQueryNotFound(detail) {
			class = apperrors.ErrClassConfig
		}
	case http.StatusForbidden:
		class = apperrors.ErrClassPermission
	case http.StatusUnprocessableEntity:
		class = apperrors.ErrClassValidation
	}
	return apperrors.New(class, op, detail).WithStatus(resp.status, detail)
}

// detailOf extracts the backend's error detail, which may be a string or structured JSON.
func detailOf(body []byte) string {
	var eb types.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Detail == nil {
		var generic struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &generic) == nil && generic.Message != "" {
			return generic.Message
		}
		return strings.TrimSpace(string(body))
	}
	if s, ok := eb.Detail.(string); ok {
		return s
	}
	data, _ := json.Marshal(eb.Detail)
	return string(data)
}

func isQueryNotFound(detail string) bool {
	d := strings.ToLower(detail)
	for _, kind := range []string{"insert", "update", "delete"} {
		if strings.Contains(d, kind+" query not found") {
			return true
		}
	}
	return false
}
