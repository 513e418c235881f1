// Package mayan is a client for the external Mayan EDMS document
// management API. The gateway uses it to mirror uploaded blobs and to
// pull back the plain-text content of a stored document version. It is
// an optional collaborator: when disabled, the local blob store is
// authoritative and nothing here runs.
package mayan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client authenticates against Mayan's token endpoint once and reuses
// the bearer token on subsequent requests. A 401 drops the cached token
// so the next call logs in again.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	mu    sync.Mutex
	token string
}

// New returns a Client for the Mayan instance at baseURL. Requests are
// bounded by a 60s client timeout.
func New(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

type tokenResponse struct {
	Access string `json:"access"`
}

func (c *Client) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v4/auth/token/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: status %d", resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("login: decode: %w", err)
	}
	if tr.Access == "" {
		return "", fmt.Errorf("login: empty access token")
	}
	return tr.Access, nil
}

// authToken returns the cached bearer token, logging in when needed.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	tok, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = tok
	return tok, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do attaches the bearer token and retries exactly once after a 401.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tok, err := c.authToken(ctx)
		if err != nil {
			return nil, err
		}
		req, err := build()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			_ = resp.Body.Close()
			c.dropToken()
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("unreachable")
}

// UploadDocument pushes a file to Mayan and returns the id Mayan
// assigned to the new document, which callers record so the content can
// later be fetched back by DocumentText. The content is buffered so the
// request can be rebuilt on a re-login retry; mirrored uploads are
// small enough for that to be acceptable.
func (c *Client) UploadDocument(ctx context.Context, fileName string, content io.Reader) (uint64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}

	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/documents/documents/", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}

	resp, err := c.do(ctx, build)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("upload: status %d", resp.StatusCode)
	}
	var created struct {
		ID uint64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, fmt.Errorf("upload: decode: %w", err)
	}
	return created.ID, nil
}

type versionList struct {
	Results []struct {
		DownloadURL string `json:"download_url"`
	} `json:"results"`
}

// DocumentText fetches the latest version of a Mayan document and
// returns its content as text. An empty string means the document has
// no versions yet.
func (c *Client) DocumentText(ctx context.Context, docID uint64) (string, error) {
	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/api/documents/documents/%d/versions/", c.baseURL, docID), nil)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("versions: status %d", resp.StatusCode)
	}
	var vl versionList
	if err := json.NewDecoder(resp.Body).Decode(&vl); err != nil {
		return "", fmt.Errorf("versions: decode: %w", err)
	}
	if len(vl.Results) == 0 {
		return "", nil
	}

	dl, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, vl.Results[0].DownloadURL, nil)
	})
	if err != nil {
		return "", err
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", dl.StatusCode)
	}
	body, err := io.ReadAll(dl.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
