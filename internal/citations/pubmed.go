// Package citations looks up scientific evidence on PubMed through the NCBI
// E-utilities: esearch for ids, esummary for metadata, efetch for abstracts.
package citations

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/clinic-studio/internal/cache"
	"github.com/jonathan/clinic-studio/internal/fetch"
	"github.com/jonathan/clinic-studio/internal/logger"
	"github.com/jonathan/clinic-studio/internal/resilience"
	"github.com/jonathan/clinic-studio/internal/types"
)

// DefaultBaseURL is the E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	// MaxResults is the number of ids requested from esearch.
	MaxResults = 5
	// MaxAuthors is how many authors are kept per citation.
	MaxAuthors = 3
	// CacheTTL is how long a search result is reused.
	CacheTTL = 24 * time.Hour
)

// Client searches PubMed.
type Client struct {
	baseURL string
	apiKey  string
	options *fetch.Options
	loader  *cache.Loader
	policy  resilience.Policy
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sends the NCBI api_key, raising the rate limit.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithCache caches search results in ch.
func WithCache(ch cache.Cache) Option {
	return func(c *Client) { c.loader = cache.NewLoader(ch) }
}

// WithPolicy sets the retry policy for E-utilities rate limiting.
func WithPolicy(p resilience.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns a PubMed client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		options: fetch.DefaultOptions(),
		policy:  resilience.Policy{MaxRetries: 2, InitialDelay: time.Second},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to MaxResults citations for term, in PubMed relevance order.
func (c *Client) Search(ctx context.Context, term string) ([]types.Citation, error) {
	term = strings.Join(strings.Fields(term), " ")
	if term == "" {
		return nil, &types.ValidationError{Kind: "citations", Fields: []types.FieldError{{Field: "term", Rule: "required"}}}
	}
	if c.loader == nil {
		return c.search(ctx, term)
	}

	raw, err := c.loader.GetOrLoad(ctx, "pubmed:"+strings.ToLower(term), CacheTTL, func(ctx context.Context) ([]byte, error) {
		found, err := c.search(ctx, term)
		if err != nil {
			return nil, err
		}
		return json.Marshal(found)
	})
	if err != nil {
		return nil, err
	}
	var found []types.Citation
	if err := json.Unmarshal(raw, &found); err != nil {
		return nil, fmt.Errorf("failed to decode cached citations: %w", err)
	}
	return found, nil
}

func (c *Client) search(ctx context.Context, term string) ([]types.Citation, error) {
	ids, err := c.esearch(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []types.Citation{}, nil
	}

	found, err := c.esummary(ctx, ids)
	if err != nil {
		return nil, err
	}

	abstracts, err := c.efetch(ctx, ids)
	if err != nil {
		// Metadata alone is still usable evidence.
		c.log.Warn("PubMed abstract fetch failed", "error", err)
	} else {
		for i := range found {
			found[i].Abstract = abstracts[found[i].PMID]
		}
	}
	return found, nil
}

func (c *Client) endpoint(tool string, params url.Values) string {
	params.Set("db", "pubmed")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return c.baseURL + "/" + tool + ".fcgi?" + params.Encode()
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	_, err := resilience.Execute(ctx, c.policy, func(ctx context.Context) (struct{}, error) {
		_, err := fetch.JSON(ctx, endpoint, c.options, out)
		return struct{}{}, err
	})
	return err
}

type esearchResponse struct {
	Result struct {
		IDs []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (c *Client) esearch(ctx context.Context, term string) ([]string, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("retmax", fmt.Sprint(MaxResults))
	params.Set("retmode", "json")
	params.Set("sort", "relevance")

	var resp esearchResponse
	if err := c.getJSON(ctx, c.endpoint("esearch", params), &resp); err != nil {
		return nil, fmt.Errorf("failed to search pubmed: %w", err)
	}
	ids := resp.Result.IDs
	if len(ids) > MaxResults {
		ids = ids[:MaxResults]
	}
	return ids, nil
}

type summaryDoc struct {
	UID             string `json:"uid"`
	Title           string `json:"title"`
	Source          string `json:"source"`
	FullJournalName string `json:"fulljournalname"`
	PubDate         string `json:"pubdate"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (c *Client) esummary(ctx context.Context, ids []string) ([]types.Citation, error) {
	params := url.Values{}
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "json")

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.getJSON(ctx, c.endpoint("esummary", params), &resp); err != nil {
		return nil, fmt.Errorf("failed to summarize pubmed ids: %w", err)
	}

	out := make([]types.Citation, 0, len(ids))
	for _, id := range ids {
		raw, ok := resp.Result[id]
		if !ok {
			continue
		}
		var doc summaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			c.log.Warn("Skipping malformed PubMed summary", "pmid", id, "error", err)
			continue
		}
		out = append(out, citationFrom(id, doc))
	}
	return out, nil
}

func citationFrom(id string, doc summaryDoc) types.Citation {
	cite := types.Citation{
		PMID:   id,
		Title:  strings.TrimSpace(doc.Title),
		Source: doc.Source,
		Year:   yearOf(doc.PubDate),
	}
	if cite.Source == "" {
		cite.Source = doc.FullJournalName
	}
	for _, a := range doc.Authors {
		if len(cite.Authors) == MaxAuthors {
			break
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			cite.Authors = append(cite.Authors, name)
		}
	}
	return cite
}

// yearOf takes the leading year of an E-utilities pubdate ("2021 Mar 5").
func yearOf(pubdate string) string {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 || len(fields[0]) < 4 {
		return ""
	}
	return fields[0][:4]
}

type efetchSet struct {
	Articles []struct {
		PMID     string `xml:"MedlineCitation>PMID"`
		Sections []struct {
			Label string `xml:"Label,attr"`
			Text  string `xml:",chardata"`
		} `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	} `xml:"PubmedArticle"`
}

func (c *Client) efetch(ctx context.Context, ids []string) (map[string]string, error) {
	params := url.Values{}
	params.Set("id", strings.Join(ids, ","))
	params.Set("rettype", "abstract")
	params.Set("retmode", "xml")

	result, err := resilience.Execute(ctx, c.policy, func(ctx context.Context) (*fetch.Result, error) {
		return fetch.URL(ctx, c.endpoint("efetch", params), c.options)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch abstracts: %w", err)
	}
	return parseAbstracts(result.Body)
}

func parseAbstracts(body []byte) (map[string]string, error) {
	var set efetchSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse efetch xml: %w", err)
	}
	out := make(map[string]string, len(set.Articles))
	for _, a := range set.Articles {
		var parts []string
		for _, s := range a.Sections {
			text := strings.Join(strings.Fields(s.Text), " ")
			if text == "" {
				continue
			}
			if s.Label != "" {
				text = s.Label + ": " + text
			}
			parts = append(parts, text)
		}
		out[strings.TrimSpace(a.PMID)] = strings.Join(parts, "\n")
	}
	return out, nil
}
