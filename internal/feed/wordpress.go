// Package feed reads the practice's published blog posts from the WordPress
// REST API.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/clinic-studio/internal/fetch"
)

// DefaultPerPage is the page size when none is given.
const DefaultPerPage = 10

// MaxPerPage is the WordPress API limit.
const MaxPerPage = 100

// Post is one blog post reduced to plain text.
type Post struct {
	ID            int       `json:"id"`
	Date          time.Time `json:"date"`
	Link          string    `json:"link"`
	Title         string    `json:"title"`
	Excerpt       string    `json:"excerpt"`
	FeaturedImage string    `json:"featured_image,omitempty"`
}

// Page is one page of search results.
type Page struct {
	Posts      []Post `json:"posts"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
}

// Query selects posts.
type Query struct {
	Search  string
	Page    int
	PerPage int
}

// Client reads {BaseURL}/wp-json/wp/v2/posts.
type Client struct {
	BaseURL string
	Options *fetch.Options
}

// NewClient returns a client for the site at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Options: fetch.DefaultOptions()}
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID       int        `json:"id"`
	Date     string     `json:"date"`
	Link     string     `json:"link"`
	Title    wpRendered `json:"title"`
	Excerpt  wpRendered `json:"excerpt"`
	Embedded struct {
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

// Posts returns one page of posts matching q.
func (c *Client) Posts(ctx context.Context, q Query) (*Page, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, fmt.Errorf("wordpress base URL is not configured")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}

	params := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("_embed", "1")
	endpoint := c.BaseURL + "/wp-json/wp/v2/posts?" + params.Encode()

	var raw []wpPost
	result, err := fetch.JSON(ctx, endpoint, c.Options, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	page := &Page{Page: q.Page, Posts: make([]Post, 0, len(raw))}
	page.TotalPages, _ = strconv.Atoi(result.Header.Get("X-WP-TotalPages"))
	for _, p := range raw {
		page.Posts = append(page.Posts, convert(p))
	}
	return page, nil
}

func convert(p wpPost) Post {
	out := Post{
		ID:      p.ID,
		Link:    p.Link,
		Title:   fetch.HTMLToText(p.Title.Rendered),
		Excerpt: fetch.HTMLToText(p.Excerpt.Rendered),
	}
	// WordPress dates carry no zone; the site's local time is kept as is.
	if t, err := time.Parse("2006-01-02T15:04:05", p.Date); err == nil {
		out.Date = t
	}
	if len(p.Embedded.FeaturedMedia) > 0 {
		out.FeaturedImage = p.Embedded.FeaturedMedia[0].SourceURL
	}
	return out
}
