package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OpenLibraryClient struct {
	client  *http.Client
	baseURL string
}

func NewOpenLibraryClient(timeout time.Duration) *OpenLibraryClient {
	return &OpenLibraryClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: "https://openlibrary.org",
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *OpenLibraryClient) WithBaseURL(u string) *OpenLibraryClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

func (c *OpenLibraryClient) Name() string { return "openlibrary" }

type olEdition struct {
	Title         string   `json:"title"`
	Authors       []olKey  `json:"authors"`
	Works         []olKey  `json:"works"`
	NumberOfPages int      `json:"number_of_pages"`
	Covers        []int    `json:"covers"`
	ISBN13        []string `json:"isbn_13"`
}

type olKey struct {
	Key string `json:"key"`
}

type olWork struct {
	Description any      `json:"description"` // string or {type, value}
	Subjects    []string `json:"subjects"`
}

type olAuthor struct {
	Name string `json:"name"`
}

func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*Metadata, error) {
	var edition olEdition
	if err := c.getJSON(ctx, "/isbn/"+isbn+".json", &edition); err != nil {
		return nil, err
	}

	md := &Metadata{
		ISBN:       isbn,
		Title:      edition.Title,
		TotalPages: edition.NumberOfPages,
		Source:     c.Name(),
	}
	if len(edition.ISBN13) > 0 {
		md.ISBN = edition.ISBN13[0]
	}
	if len(edition.Covers) > 0 {
		md.CoverImage = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", edition.Covers[0])
	}

	// work and author details are best effort
	if len(edition.Works) > 0 {
		var work olWork
		if err := c.getJSON(ctx, edition.Works[0].Key+".json", &work); err == nil {
			md.Description = truncate(extractDescription(work.Description), 500)
			if len(work.Subjects) > 0 {
				md.Category = work.Subjects[0]
			}
		}
	}

	var names []string
	for _, a := range edition.Authors {
		var author olAuthor
		if err := c.getJSON(ctx, a.Key+".json", &author); err == nil && author.Name != "" {
			names = append(names, author.Name)
		}
	}
	md.Author = strings.Join(names, ", ")

	return md, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OpenLibrary returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func extractDescription(desc any) string {
	switch v := desc.(type) {
	case string:
		return v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			return val
		}
	}
	return ""
}
