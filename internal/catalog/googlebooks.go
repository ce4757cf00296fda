package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type GoogleBooksClient struct {
	client  *http.Client
	baseURL string
	apiKey  string // optional, raises the rate limit
}

func NewGoogleBooksClient(apiKey string, timeout time.Duration) *GoogleBooksClient {
	return &GoogleBooksClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://www.googleapis.com/books/v1",
		apiKey:  apiKey,
	}
}

func (c *GoogleBooksClient) WithBaseURL(u string) *GoogleBooksClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

func (c *GoogleBooksClient) Name() string { return "googlebooks" }

type gbSearchResult struct {
	TotalItems int      `json:"totalItems"`
	Items      []gbItem `json:"items"`
}

type gbItem struct {
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
}

type gbVolumeInfo struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	PageCount   int      `json:"pageCount"`
	ImageLinks  struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"imageLinks"`
}

func (c *GoogleBooksClient) LookupISBN(ctx context.Context, isbn string) (*Metadata, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	q.Set("maxResults", "1")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search Google Books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books returned status %d", resp.StatusCode)
	}

	var result gbSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	if len(result.Items) == 0 || result.Items[0].VolumeInfo.Title == "" {
		return nil, ErrNotFound
	}

	vi := result.Items[0].VolumeInfo
	md := &Metadata{
		ISBN:        isbn,
		Title:       vi.Title,
		Author:      strings.Join(vi.Authors, ", "),
		TotalPages:  vi.PageCount,
		CoverImage:  vi.ImageLinks.Thumbnail,
		Description: truncate(vi.Description, 500),
		Source:      c.Name(),
	}
	if len(vi.Categories) > 0 {
		md.Category = vi.Categories[0]
	}
	return md, nil
}
