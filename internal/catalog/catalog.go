// Package catalog looks up book metadata by ISBN so a new book can start
// with its real page count.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrNotFound = errors.New("isbn not found")

// Metadata is what a catalog knows about an edition. TotalPages is 0 when
// the catalog does not list a page count.
type Metadata struct {
	ISBN        string
	Title       string
	Author      string
	Category    string
	TotalPages  int
	CoverImage  string
	Description string
	Source      string
}

// Source is one remote catalog.
type Source interface {
	Name() string
	LookupISBN(ctx context.Context, isbn string) (*Metadata, error)
}

// Lookup asks each source in turn and returns the first hit. A hit without
// a page count is kept but later sources may still fill the pages in.
type Lookup struct {
	sources []Source
	logger  *slog.Logger
}

func NewLookup(logger *slog.Logger, sources ...Source) *Lookup {
	return &Lookup{sources: sources, logger: logger}
}

func (l *Lookup) ISBN(ctx context.Context, isbn string) (*Metadata, error) {
	isbn = NormalizeISBN(isbn)
	if !validISBN(isbn) {
		return nil, fmt.Errorf("invalid isbn %q", isbn)
	}

	var found *Metadata
	for _, src := range l.sources {
		md, err := src.LookupISBN(ctx, isbn)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				l.logger.Warn("Catalog lookup failed", "source", src.Name(), "isbn", isbn, "error", err)
			}
			continue
		}
		if found == nil {
			found = md
		} else if found.TotalPages == 0 && md.TotalPages > 0 {
			found.TotalPages = md.TotalPages
		}
		if found.TotalPages > 0 {
			break
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%s: %w", isbn, ErrNotFound)
	}
	l.logger.Debug("Catalog hit", "source", found.Source, "isbn", isbn, "pages", found.TotalPages)
	return found, nil
}

// NormalizeISBN strips hyphens and spaces.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return strings.ToUpper(isbn)
}

func validISBN(isbn string) bool {
	if len(isbn) != 10 && len(isbn) != 13 {
		return false
	}
	for i, r := range isbn {
		if r >= '0' && r <= '9' {
			continue
		}
		// ISBN-10 check digit
		if r == 'X' && len(isbn) == 10 && i == 9 {
			continue
		}
		return false
	}
	return true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
