// Package cli implements the interactive terminal client for the authkeeper
// HTTP API.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"authkeeper/internal/server/users"
)

// Client is a minimal HTTP client for the identity API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	Errors struct {
		Body []string `json:"body"`
	} `json:"errors"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *apiError) Error() string {
	if len(e.Errors.Body) > 0 {
		return strings.Join(e.Errors.Body, "; ")
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Type
}

func (c *Client) Register(ctx context.Context, email, username string, password []byte) (*users.ProfileBody, error) {
	body := users.AuthBody{User: &users.Credentials{Email: email, Username: username, Password: string(password)}}
	return c.profileRequest(ctx, http.MethodPost, "/api/users", "", body)
}

func (c *Client) Login(ctx context.Context, email string, password []byte) (*users.ProfileBody, error) {
	body := users.AuthBody{User: &users.Credentials{Email: email, Password: string(password)}}
	return c.profileRequest(ctx, http.MethodPost, "/api/users/login", "", body)
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*users.ProfileBody, error) {
	return c.profileRequest(ctx, http.MethodGet, "/api/user", token, nil)
}

func (c *Client) Delete(ctx context.Context, email string) error {
	path := "/api/users/" + url.PathEscape(email)
	req, err := c.newRequest(ctx, http.MethodDelete, path, "", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) profileRequest(ctx context.Context, method, path, token string, body any) (*users.ProfileBody, error) {
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	profile := &users.ProfileBody{}
	if err := json.NewDecoder(resp.Body).Decode(profile); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return profile, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	e := &apiError{}
	if err := json.NewDecoder(resp.Body).Decode(e); err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return e
}
