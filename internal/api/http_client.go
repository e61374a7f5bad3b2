package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// HTTPClient talks to the /data/{key} routes. Errors are translated back
// into the kv error taxonomy.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
	}
}

func (c *HTTPClient) Get(ctx context.Context, key string) (string, error) {
	return c.do(ctx, http.MethodGet, key, nil)
}

// Set stores value under key and returns the value echoed by the server.
func (c *HTTPClient) Set(ctx context.Context, key, value string) (string, error) {
	if !utf8.ValidString(value) {
		return "", kv.ErrInvalidEncoding
	}
	return c.do(ctx, http.MethodPut, key, strings.NewReader(value))
}

func (c *HTTPClient) do(ctx context.Context, method, key string, body io.Reader) (string, error) {
	if key == "" {
		return "", kv.ErrEmptyKey
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/data/"+url.PathEscape(key), body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	msg := strings.TrimSpace(string(b))
	switch resp.StatusCode {
	case http.StatusOK:
		return string(b), nil
	case http.StatusNotFound:
		return "", kv.ErrNotFound
	case http.StatusBadRequest:
		if msg == kv.ErrInvalidEncoding.Error() {
			return "", kv.ErrInvalidEncoding
		}
		return "", fmt.Errorf("bad request: %s", msg)
	case http.StatusInternalServerError:
		return "", fmt.Errorf("%w: %s", kv.ErrInternal, msg)
	default:
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}
