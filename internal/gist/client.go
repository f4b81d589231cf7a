// Package gist is a minimal GitHub gist client used by the viewer to load and
// share reports.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethpandaops/lhviewer/constants"
)

var (
	// ErrInvalidID is returned when a gist URL or id cannot be recognised.
	ErrInvalidID = errors.New(constants.ErrInvalidGistMessage)
	// ErrNoJSONFile is returned when a gist holds no .json file.
	ErrNoJSONFile = errors.New("gist does not contain a JSON file")
	// ErrTokenRequired is returned when creating a gist without a token.
	ErrTokenRequired = errors.New("a GitHub token is required to create gists")
)

var gistIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{5,40}$`)

// Client talks to the GitHub gist API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     logrus.FieldLogger
}

// NewClient creates a gist client. An empty baseURL uses the public GitHub API.
func NewClient(logger logrus.FieldLogger, baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultGitHubAPIURL
	}

	if timeout <= 0 {
		timeout = constants.DefaultGistTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer("lhviewer/gist"),
		logger: logger.WithField("component", "gist_client"),
	}
}

// Gist is the subset of the GitHub gist resource the viewer uses.
type Gist struct {
	ID      string          `json:"id"`
	HTMLURL string          `json:"html_url"`
	Files   map[string]File `json:"files"`
}

// File is one file inside a gist.
type File struct {
	Filename  string `json:"filename"`
	RawURL    string `json:"raw_url"`
	Truncated bool   `json:"truncated"`
	Content   string `json:"content"`
}

// ParseID extracts a gist id from a bare id or a gist URL.
func ParseID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if gistIDPattern.MatchString(input) {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", ErrInvalidID
	}

	if u.Host != "gist.github.com" && !strings.HasSuffix(u.Host, ".gist.github.com") {
		return "", ErrInvalidID
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := parts[len(parts)-1]
	if !gistIDPattern.MatchString(id) {
		return "", ErrInvalidID
	}

	return id, nil
}

// GetGistFileContentAsJSON fetches the gist and returns the content of its
// first JSON file (by filename order).
func (c *Client) GetGistFileContentAsJSON(ctx context.Context, id string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "gist.get", trace.WithAttributes(attribute.String("gist.id", id)))
	defer span.End()

	content, err := c.getGistJSON(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	return content, nil
}

func (c *Client) getGistJSON(ctx context.Context, id string) ([]byte, error) {
	if !gistIDPattern.MatchString(id) {
		return nil, ErrInvalidID
	}

	var g Gist
	if err := c.do(ctx, http.MethodGet, "/gists/"+id, nil, &g); err != nil {
		return nil, fmt.Errorf("failed to fetch gist %s: %w", id, err)
	}

	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		if strings.HasSuffix(strings.ToLower(name), ".json") {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, ErrNoJSONFile
	}
	sort.Strings(names)

	f := g.Files[names[0]]
	if !f.Truncated {
		return []byte(f.Content), nil
	}

	c.logger.WithField("gist", id).Debug("Gist file truncated, fetching raw content")

	return c.fetchRaw(ctx, f.RawURL)
}

// CreateGist uploads report JSON as a secret gist and returns it.
func (c *Client) CreateGist(ctx context.Context, reportJSON []byte) (*Gist, error) {
	ctx, span := c.tracer.Start(ctx, "gist.create")
	defer span.End()

	if c.token == "" {
		return nil, ErrTokenRequired
	}

	filename := fmt.Sprintf("%s%s.json", constants.GistFilenamePrefix, time.Now().UTC().Format(time.RFC3339))
	body := map[string]interface{}{
		"description": "Lighthouse json report",
		"public":      false,
		"files": map[string]interface{}{
			filename: map[string]string{"content": string(reportJSON)},
		},
	}

	var g Gist
	if err := c.do(ctx, http.MethodPost, "/gists", body, &g); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("failed to create gist: %w", err)
	}

	c.logger.WithField("gist", g.ID).Info("Gist created")

	return &g, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raw gist file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raw gist file request failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw gist file: %w", err)
	}

	return data, nil
}

// SetHTTPClient allows setting a custom HTTP client (for testing)
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
