package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrAdminNotConfigured = errors.New("admin client not configured")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// IdentityUser is an account as reported by the identity provider
type IdentityUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time    `json:"created_at"`
	LastSignInAt *time.Time   `json:"last_sign_in_at,omitempty"`
}

// NewIdentityUser is the payload for creating an account
type NewIdentityUser struct {
	Email    string
	Password string
	Name     string
}

// AdminClient calls the identity provider's admin API with the service key
type AdminClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewAdminClient creates a client. An empty baseURL or serviceKey yields a client
// whose every call fails with ErrAdminNotConfigured.
func NewAdminClient(baseURL, serviceKey string, log zerolog.Logger) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("component", "auth_admin").Logger(),
	}
}

// Configured reports whether privileged calls can be made
func (c *AdminClient) Configured() bool {
	return c.baseURL != "" && c.serviceKey != ""
}

type listUsersResponse struct {
	Users []IdentityUser `json:"users"`
}

// ListUsers returns every account, following pagination
func (c *AdminClient) ListUsers(ctx context.Context) ([]IdentityUser, error) {
	const perPage = 200

	var all []IdentityUser
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", fmt.Sprint(page))
		q.Set("per_page", fmt.Sprint(perPage))

		var resp listUsersResponse
		if err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Users...)
		if len(resp.Users) < perPage {
			break
		}
	}
	return all, nil
}

// CreateUser creates a confirmed account
func (c *AdminClient) CreateUser(ctx context.Context, in NewIdentityUser) (*IdentityUser, error) {
	body := map[string]interface{}{
		"email":         in.Email,
		"password":      in.Password,
		"email_confirm": true,
	}
	if in.Name != "" {
		body["user_metadata"] = map[string]string{"name": in.Name}
	}

	var user IdentityUser
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes an account
func (c *AdminClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), nil, nil)
}

func (c *AdminClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	if !c.Configured() {
		return ErrAdminNotConfigured
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Identity provider admin call")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict:
		return ErrUserExists
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("identity provider request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity provider response: %w", err)
	}
	return nil
}
