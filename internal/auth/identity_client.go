package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"promptdeck/internal/domain"
)

// IdentityClient talks to the identity provider's admin API. It backs the
// owner-email lookups on subscription views and the user management the seed
// tool needs.
type IdentityClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewIdentityClient creates an admin API client. Requires the service role
// key for elevated permissions.
func NewIdentityClient(baseURL, serviceKey string) *IdentityClient {
	return &IdentityClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type identityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type listUsersResponse struct {
	Users []identityUser `json:"users"`
}

// EmailByID resolves a user's email address. Display surfaces treat a
// failure here as non-fatal.
func (c *IdentityClient) EmailByID(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create user request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("fetch user failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user identityUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode user response: %w", err)
	}
	return user.Email, nil
}

// CreateUser creates a confirmed user and returns its id. Used by the seed
// tool, not the regular auth flow.
func (c *IdentityClient) CreateUser(ctx context.Context, email, password string) (string, error) {
	payload := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal create request: %w", err)
	}

	url := fmt.Sprintf("%s/auth/v1/admin/users", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create user failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user identityUser
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return user.ID, nil
}

// DeleteUserByEmail finds a user by email and deletes them. Idempotent.
func (c *IdentityClient) DeleteUserByEmail(ctx context.Context, email string) error {
	userID, err := c.findUserIDByEmail(ctx, email)
	if err != nil {
		return nil
	}

	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete user failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *IdentityClient) findUserIDByEmail(ctx context.Context, email string) (string, error) {
	url := fmt.Sprintf("%s/auth/v1/admin/users", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create list request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("list users failed with status %d: %s", resp.StatusCode, string(body))
	}

	var listResp listUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return "", fmt.Errorf("decode list response: %w", err)
	}
	for _, user := range listResp.Users {
		if user.Email == email {
			return user.ID, nil
		}
	}
	return "", fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (c *IdentityClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
}
