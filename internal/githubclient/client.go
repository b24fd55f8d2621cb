// Package githubclient talks to the GitHub REST API on behalf of the login and
// API-key flows.
package githubclient

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
)

const apiVersion = "2022-11-28"

// User is the subset of the GitHub user object the service reads.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Client calls the GitHub API.
type Client struct {
	BaseURL      string
	HTTP         *http.Client
	ClientID     string
	ClientSecret string
}

// New creates a client for the OAuth app identified by clientID.
func New(baseURL, clientID, clientSecret string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "root-backend")
	return req, nil
}

// VerifyToken asks GitHub whether token is a live token of this OAuth app. A 200 means
// valid and a 404 or 422 means invalid. Transport failures and any other status are
// returned as errors so callers fail closed.
func (c *Client) VerifyToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return false, fmt.Errorf("github oauth app not configured")
	}

	body, _ := json.Marshal(map[string]string{"access_token": token})
	req, err := c.newRequest(ctx, http.MethodPost, "/applications/"+url.PathEscape(c.ClientID)+"/token", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.ClientID, c.ClientSecret)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return false, nil
	default:
		return false, fmt.Errorf("github token check returned %s", resp.Status)
	}
}

// FetchUser returns the user that owns token.
func (c *Client) FetchUser(ctx context.Context, token string) (User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return User{}, fmt.Errorf("github error %s: %s", resp.Status, string(bodyBytes))
	}

	var out User
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return User{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Login == "" {
		return User{}, fmt.Errorf("github user has no login")
	}
	return out, nil
}
