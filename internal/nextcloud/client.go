// Package nextcloud implements the remote table client for the Nextcloud
// Tables app. One stateless client serves every table; calls are
// parameterized by table ID. Row access goes through the Tables API v1
// (index.php/apps/tables/api/1), table property updates through the OCS v2
// endpoint.
package nextcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/m-ad/kita-nextcloud-automation/internal/config"
)

// apiBase is the Tables API v1 prefix, relative to the instance base URL.
const apiBase = "index.php/apps/tables/api/1"

// ocsBase is the OCS v2 prefix used for table property updates.
const ocsBase = "ocs/v2.php/apps/tables/api/2"

// maxErrorBody caps how much of an error response body is kept for
// reporting, to avoid unbounded allocation on large error pages.
const maxErrorBody = 64 * 1024

// ErrAuthentication marks credential failures (HTTP 401/403). Both jobs
// treat it as fatal.
var ErrAuthentication = errors.New("authentication failed")

// APIError is a non-auth HTTP failure from the Tables API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client performs authenticated HTTP calls against one Nextcloud instance.
// It is safe for sequential reuse across tables; it holds no per-table
// state.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// New builds a client from the loaded configuration.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

// do issues an authenticated request and decodes the JSON response body
// into out (skipped when out is nil). body, when non-nil, is sent as JSON.
func (c *Client) do(ctx context.Context, method, path string, ocs bool, body, out any) error {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ocs {
		req.Header.Set("OCS-APIRequest", "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(method, path, resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// statusError turns a non-2xx response into the package error taxonomy.
func (c *Client) statusError(method, path string, resp *http.Response) error {
	body := readErrorBody(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s %s: status %d", ErrAuthentication, method, path, resp.StatusCode)
	}
	return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: body}
}

// readErrorBody reads at most maxErrorBody bytes of a response body for
// error reporting.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBody {
		body = append(body, []byte("... (truncated)")...)
	}
	return strings.TrimSpace(string(body))
}
