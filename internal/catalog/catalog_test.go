package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newOpenLibraryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9780441013593.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"title": "Dune",
			"authors": [{"key": "/authors/OL79034A"}],
			"works": [{"key": "/works/OL893415W"}],
			"number_of_pages": 617,
			"covers": [12345],
			"isbn_13": ["9780441013593"]
		}`)
	})
	mux.HandleFunc("/works/OL893415W.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"description": {"type": "/type/text", "value": "Desert planet."}, "subjects": ["Science fiction"]}`)
	})
	mux.HandleFunc("/authors/OL79034A.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name": "Frank Herbert"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenLibraryLookup(t *testing.T) {
	srv := newOpenLibraryServer(t)
	c := NewOpenLibraryClient(time.Second).WithBaseURL(srv.URL)

	md, err := c.LookupISBN(context.Background(), "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, "Dune", md.Title)
	assert.Equal(t, "Frank Herbert", md.Author)
	assert.Equal(t, 617, md.TotalPages)
	assert.Equal(t, "Science fiction", md.Category)
	assert.Equal(t, "Desert planet.", md.Description)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/12345-M.jpg", md.CoverImage)

	_, err = c.LookupISBN(context.Background(), "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleBooksLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "isbn:9780441013593", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		io.WriteString(w, `{"totalItems": 1, "items": [{"volumeInfo": {
			"title": "Dune", "authors": ["Frank Herbert"], "pageCount": 896,
			"categories": ["Fiction"], "imageLinks": {"thumbnail": "http://img/dune.jpg"}
		}}]}`)
	}))
	defer srv.Close()

	md, err := NewGoogleBooksClient("secret", time.Second).WithBaseURL(srv.URL).
		LookupISBN(context.Background(), "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, 896, md.TotalPages)
	assert.Equal(t, "Fiction", md.Category)
	assert.Equal(t, "http://img/dune.jpg", md.CoverImage)
}

type stubSource struct {
	name string
	md   *Metadata
	err  error
	hits int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) LookupISBN(context.Context, string) (*Metadata, error) {
	s.hits++
	if s.err != nil {
		return nil, s.err
	}
	md := *s.md
	return &md, nil
}

func TestLookupChain(t *testing.T) {
	ctx := context.Background()

	t.Run("first source with pages wins", func(t *testing.T) {
		first := &stubSource{name: "a", md: &Metadata{Title: "Dune", TotalPages: 617, Source: "a"}}
		second := &stubSource{name: "b", md: &Metadata{Title: "Dune", TotalPages: 896, Source: "b"}}

		md, err := NewLookup(testLogger, first, second).ISBN(ctx, "978-0-441-01359-3")
		require.NoError(t, err)
		assert.Equal(t, 617, md.TotalPages)
		assert.Equal(t, 0, second.hits)
	})

	t.Run("later source fills in the page count", func(t *testing.T) {
		first := &stubSource{name: "a", md: &Metadata{Title: "Dune", Author: "Frank Herbert", Source: "a"}}
		second := &stubSource{name: "b", md: &Metadata{Title: "Dune (reissue)", TotalPages: 896, Source: "b"}}

		md, err := NewLookup(testLogger, first, second).ISBN(ctx, "9780441013593")
		require.NoError(t, err)
		assert.Equal(t, "Dune", md.Title)
		assert.Equal(t, 896, md.TotalPages)
	})

	t.Run("failures fall through to not found", func(t *testing.T) {
		first := &stubSource{name: "a", err: errors.New("timeout")}
		second := &stubSource{name: "b", err: ErrNotFound}

		_, err := NewLookup(testLogger, first, second).ISBN(ctx, "9780441013593")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed isbn is rejected before any request", func(t *testing.T) {
		src := &stubSource{name: "a", err: ErrNotFound}
		_, err := NewLookup(testLogger, src).ISBN(ctx, "12-34")
		assert.Error(t, err)
		assert.Equal(t, 0, src.hits)
	})
}

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "044101359X", NormalizeISBN("0-441-01359-x"))
	assert.True(t, validISBN("044101359X"))
	assert.False(t, validISBN("X441013590"))
}
