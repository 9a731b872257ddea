package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scanpool/scanpool/interfaces"
)

// DefaultBaseURL is the hosted inbox provider endpoint.
const DefaultBaseURL = "https://fviainboxes.com/"

// requestTimeout bounds every inbox call.
const requestTimeout = 30 * time.Second

var defaultHTTPClient = &http.Client{Timeout: requestTimeout}

// Client implements interfaces.InboxClient against an fviainboxes-compatible
// HTTP API. The client is stateless and safe to share across provisioning
// attempts.
type Client struct {
	// BaseURL is the inbox API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Token is the provider's bearer token, supplied by configuration.
	Token string

	// Log receives request diagnostics. May be nil.
	Log *slog.Logger

	// HTTPClient overrides the default timeout-bounded client, mainly for
	// tests.
	HTTPClient *http.Client
}

// ListDomains returns the provider's currently advertised email domains. Any
// failure yields an empty list rather than an error: callers tolerate a
// domainless answer and fail downstream when no domain is available.
func (c *Client) ListDomains(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "domains", nil)
	if err != nil {
		c.warn("Could not list inbox domains", err)
		return []string{}, nil
	}

	var parsed struct {
		Result []string `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.warn("Could not parse domains response", err)
		return []string{}, nil
	}

	return parsed.Result, nil
}

func (c *Client) warn(msg string, err error) {
	if c.Log != nil {
		c.Log.Warn(msg, slog.String("err", err.Error()))
	}
}

// ListMessages returns the message listing for the identity's address.
func (c *Client) ListMessages(ctx context.Context, id interfaces.Identity) ([]interfaces.Message, error) {
	params := url.Values{}
	params.Set("username", id.Username)
	params.Set("domain", id.Domain)

	body, err := c.get(ctx, "messages", params)
	if err != nil {
		return nil, fmt.Errorf("could not list messages for %s: %w", id.Address(), err)
	}

	var parsed struct {
		Result []interfaces.Message `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse message listing for %s: %w", id.Address(), err)
	}

	return parsed.Result, nil
}

// FetchMessage returns the raw body of a single message. Unlike the listing
// endpoints the response is plain text, not JSON.
func (c *Client) FetchMessage(ctx context.Context, id interfaces.Identity, messageID string) (string, error) {
	params := url.Values{}
	params.Set("username", id.Username)
	params.Set("domain", id.Domain)
	params.Set("id", messageID)

	body, err := c.get(ctx, "message", params)
	if err != nil {
		return "", fmt.Errorf("could not fetch message %s for %s: %w", messageID, id.Address(), err)
	}

	return string(body), nil
}

func (c *Client) get(ctx context.Context, route string, params url.Values) ([]byte, error) {
	reqURL := strings.TrimSuffix(c.baseURL(), "/") + "/" + route
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request inbox %s endpoint: %w", route, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		if readErr != nil {
			return nil, &interfaces.RequestError{
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("inbox %s endpoint returned non-200 response: %d", route, resp.StatusCode),
			}
		}
		return nil, &interfaces.RequestError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("inbox %s endpoint returned error %d: %s", route, resp.StatusCode, string(body)),
		}
	}
	if readErr != nil {
		return nil, fmt.Errorf("could not read inbox %s response: %w", route, readErr)
	}

	if c.Log != nil {
		c.Log.Debug("Inbox request completed",
			slog.String("route", route),
			slog.Int("size", len(body)))
	}

	return body, nil
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}
