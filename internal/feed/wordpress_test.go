package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postsJSON = `[
  {
    "id": 41,
    "date": "2026-02-10T08:30:00",
    "link": "https://clinica.example/blog/fascite",
    "title": {"rendered": "Fascite plantar &#8211; guia"},
    "excerpt": {"rendered": "<p>Dor no calcanhar ao acordar?</p>\n"},
    "_embedded": {"wp:featuredmedia": [{"source_url": "https://clinica.example/img/f.jpg"}]}
  },
  {
    "id": 40,
    "date": "bad",
    "link": "https://clinica.example/blog/unha",
    "title": {"rendered": "Unha encravada"},
    "excerpt": {"rendered": ""}
  }
]`

func TestPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "calcanhar", q.Get("search"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "5", q.Get("per_page"))
		assert.Equal(t, "1", q.Get("_embed"))
		w.Header().Set("X-WP-TotalPages", "4")
		_, _ = w.Write([]byte(postsJSON))
	}))
	defer server.Close()

	page, err := NewClient(server.URL+"/").Posts(context.Background(), Query{Search: " calcanhar ", Page: 2, PerPage: 5})
	require.NoError(t, err)

	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Posts, 2)

	first := page.Posts[0]
	assert.Equal(t, 41, first.ID)
	assert.Equal(t, "Fascite plantar – guia", first.Title)
	assert.Equal(t, "Dor no calcanhar ao acordar?", first.Excerpt)
	assert.Equal(t, "https://clinica.example/img/f.jpg", first.FeaturedImage)
	assert.Equal(t, time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC), first.Date)

	second := page.Posts[1]
	assert.True(t, second.Date.IsZero())
	assert.Empty(t, second.FeaturedImage)
}

func TestPosts_Defaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("search"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "100", q.Get("per_page"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL).Posts(context.Background(), Query{PerPage: 500})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Equal(t, 0, page.TotalPages)
}

func TestPosts_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"rest_post_invalid_page_number"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Posts(context.Background(), Query{Page: 99})
	assert.ErrorContains(t, err, "400")
}

func TestPosts_NotConfigured(t *testing.T) {
	_, err := NewClient("").Posts(context.Background(), Query{})
	assert.Error(t, err)
}
