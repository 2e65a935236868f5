// Package weaviate wraps the Weaviate Go client for the calls the browser
// makes, plus a Manager that keeps one client per connected connection id.
package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
)

// StatusError is returned for non-2xx responses of requests made outside
// the Weaviate client
type StatusError struct {
	Code    int
	Method  string
	Path    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// StatusCode returns the HTTP status behind err, zero if there is none
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	var we *fault.WeaviateClientError
	if errors.As(err, &we) {
		return we.StatusCode
	}
	// generated REST responses
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return 0
}

// Client talks to a single Weaviate instance
type Client struct {
	w *weaviate.Client

	// cursor listing isn't exposed by the Weaviate client
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for the instance at uri.
// timeout bounds every request made by the client.
func New(uri string, apiKey *string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("uri %q must be an http(s) address", uri)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 10,
		},
	}
	cfg := weaviate.Config{
		Host:             u.Host,
		Scheme:           u.Scheme,
		ConnectionClient: httpClient,
		Headers:          map[string]string{},
	}
	if apiKey != nil {
		cfg.AuthConfig = auth.ApiKey{Value: *apiKey}
	}
	w, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create client for %s: %w", u.Host, err)
	}

	c := &Client{
		w:          w,
		baseURL:    u.Scheme + "://" + u.Host,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "weaviate_client"), slog.String("host", u.Host)),
	}
	if apiKey != nil {
		c.apiKey = *apiKey
	}
	return c, nil
}

type errorResponse struct {
	Error []struct {
		Message string `json:"message"`
	} `json:"error"`
}

// getJSON sends a GET request and decodes the JSON response into out
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response GET %s: %w", path, err)
	}

	c.logger.Debug("request done",
		slog.String("method", http.MethodGet),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Method: http.MethodGet, Path: path}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && len(er.Error) > 0 {
			se.Message = er.Error[0].Message
		}
		return se
	}

	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode GET %s: %w", path, err)
	}
	return nil
}

// Meta is the subset of the instance metadata the browser uses
type Meta struct {
	Hostname string
	Version  string
	Modules  map[string]any
}

func (c *Client) Meta(ctx context.Context) (Meta, error) {
	m, err := c.w.Misc().MetaGetter().Do(ctx)
	if err != nil {
		return Meta{}, fmt.Errorf("get meta: %w", err)
	}
	out := Meta{Hostname: m.Hostname, Version: m.Version}
	out.Modules, _ = m.Modules.(map[string]any)
	return out, nil
}

// Live returns nil when the instance answers its liveness check
func (c *Client) Live(ctx context.Context) error {
	live, err := c.w.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("live check: %w", err)
	}
	if !live {
		return errors.New("live check: instance is not live")
	}
	return nil
}

// UsersEnabled looks up a db user that doesn't exist. A 404 means the
// endpoint is there and user management is on.
func (c *Client) UsersEnabled(ctx context.Context) (bool, error) {
	_, err := c.w.Users().DB().Getter().WithUserID("check-user").Do(ctx)
	switch code := StatusCode(err); {
	case err == nil, code == http.StatusNotFound:
		return true, nil
	case code == http.StatusUnprocessableEntity, code == http.StatusNotImplemented:
		return false, nil
	}
	return false, fmt.Errorf("check users enabled: %w", err)
}

// BackupModules lists the enabled backup backends, e.g. "backup-filesystem"
func (c *Client) BackupModules(ctx context.Context) ([]string, error) {
	m, err := c.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("check backup modules: %w", err)
	}
	var out []string
	for name := range m.Modules {
		if strings.Contains(name, "backup") {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// BackendName maps a backup module name to the backend used in backup paths
func BackendName(module string) string {
	return strings.TrimPrefix(module, "backup-")
}
