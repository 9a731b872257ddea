package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/scanpool/scanpool/interfaces"
)

// DefaultBaseURL is the scanning service's account API root.
const DefaultBaseURL = "https://wpscan.com/wp-json/wpscan/v1/"

// SessionCookieName is the session cookie the service expects on API calls.
const SessionCookieName = "_hcp"

// requestTimeout bounds every account service call.
const requestTimeout = 30 * time.Second

// Client implements interfaces.AccountServiceClient against a
// wpscan-compatible account API. Each client owns a private cookie jar;
// construct a fresh client per provisioning attempt so session state never
// leaks across attempts.
type Client struct {
	baseURL    string
	log        *slog.Logger
	httpClient *http.Client
}

// NewClient constructs a client with a fresh cookie jar. If sessionCookie is
// non-empty it is planted on the service host before the first call.
func NewClient(baseURL, sessionCookie string, log *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid account service URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("could not create cookie jar: %w", err)
	}
	if sessionCookie != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: SessionCookieName, Value: sessionCookie, Path: "/"}})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		log:        log,
		httpClient: &http.Client{Jar: jar, Timeout: requestTimeout},
	}, nil
}

// signUpUser mirrors the service's web sign-up form. Profile fields stay
// empty, the newsletter is declined, and the terms are accepted.
type signUpUser struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Homepage             string `json:"homepage"`
	Twitter              string `json:"twitter"`
	AddressLine1         string `json:"address_line1"`
	AddressLine2         string `json:"address_line2"`
	AddressCity          string `json:"address_city"`
	AddressPostalCode    string `json:"address_postal_code"`
	AddressState         string `json:"address_state"`
	AddressCountry       string `json:"address_country"`
	TaxIDDataType        string `json:"tax_id_data_type"`
	TaxIDDataValue       string `json:"tax_id_data_value"`
	Newsletter           bool   `json:"newsletter"`
	TermsAccepted        bool   `json:"terms_accepted"`
}

// Register creates an unactivated account for the identity. A non-200
// response is reported with the service's own error message.
func (c *Client) Register(ctx context.Context, id interfaces.Identity, password, displayName string) error {
	payload := map[string]signUpUser{
		"user": {
			Name:                 displayName,
			Email:                id.Address(),
			Password:             password,
			PasswordConfirmation: password,
			Newsletter:           false,
			TermsAccepted:        true,
		},
	}

	resp, body, err := c.post(ctx, "sign-up", payload)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &interfaces.RequestError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("could not register %s: %s", id.Address(), signUpFailureDetail(body, resp.StatusCode)),
		}
	}

	return nil
}

// signUpFailureDetail extracts the service's error message from a failed
// sign-up response, falling back to the raw body.
func signUpFailureDetail(body []byte, status int) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) > 0 {
		return string(body)
	}
	return fmt.Sprintf("sign-up endpoint returned error %d", status)
}

// ConfirmActivation submits an activation token. The returned bool reflects
// the service's success field; an explicit false is not an error.
func (c *Client) ConfirmActivation(ctx context.Context, token string) (bool, error) {
	resp, body, err := c.post(ctx, "confirmation", map[string]string{"token": token})
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, &interfaces.RequestError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("activation endpoint returned error %d: %s", resp.StatusCode, string(body)),
		}
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("could not parse activation response: %w", err)
	}

	return parsed.Success, nil
}

// Login authenticates the session for the given address. The returned bool
// reflects the service's success field.
func (c *Client) Login(ctx context.Context, address, password string) (bool, error) {
	payload := map[string]any{
		"email":       address,
		"password":    password,
		"remember_me": true,
	}

	resp, body, err := c.post(ctx, "sign-in", payload)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, &interfaces.RequestError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("login endpoint returned error %d for %s", resp.StatusCode, address),
		}
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("could not parse login response: %w", err)
	}

	return parsed.Success, nil
}

// FetchProfile returns the profile of the logged-in account, carried in the
// response's data field.
func (c *Client) FetchProfile(ctx context.Context) (interfaces.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"users", nil)
	if err != nil {
		return interfaces.Profile{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return interfaces.Profile{}, fmt.Errorf("could not request profile endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return interfaces.Profile{}, &interfaces.RequestError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("profile endpoint returned error %d", resp.StatusCode),
		}
	}
	if readErr != nil {
		return interfaces.Profile{}, fmt.Errorf("could not read profile response: %w", readErr)
	}

	var parsed struct {
		Data interfaces.Profile `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return interfaces.Profile{}, fmt.Errorf("could not parse profile response: %w", err)
	}

	return parsed.Data, nil
}

func (c *Client) post(ctx context.Context, route string, payload any) (*http.Response, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("could not encode %s request: %w", route, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("could not request %s endpoint: %w", route, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("could not read %s response: %w", route, err)
	}

	if c.log != nil {
		c.log.Debug("Account service request completed",
			slog.String("route", route),
			slog.Int("status", resp.StatusCode))
	}

	return resp, body, nil
}
