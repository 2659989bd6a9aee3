package citations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clinic-studio/internal/cache"
	"github.com/jonathan/clinic-studio/internal/resilience"
	"github.com/jonathan/clinic-studio/internal/types"
)

const summaryJSON = `{"result":{"uids":["111","222"],
 "111":{"uid":"111","title":"Plantar fasciitis: a review.","source":"Foot Ankle Int","pubdate":"2021 Mar 5",
        "authors":[{"name":"Silva A"},{"name":"Costa B"},{"name":"Lima C"},{"name":"Souza D"}]},
 "222":{"uid":"222","title":"Orthoses for heel pain","source":"","fulljournalname":"Journal of Foot Research","pubdate":"2019",
        "authors":[]}}}`

const efetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation><PMID Version="1">111</PMID>
      <Article><Abstract>
        <AbstractText Label="BACKGROUND">Heel pain is   common.</AbstractText>
        <AbstractText Label="CONCLUSIONS">Stretching helps.</AbstractText>
      </Abstract></Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation><PMID Version="1">222</PMID>
      <Article><Abstract><AbstractText>Orthoses reduce pain.</AbstractText></Abstract></Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

type eutils struct {
	searches  atomic.Int32
	efetchErr bool
	idlist    string
}

func (e *eutils) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		switch r.URL.Path {
		case "/esearch.fcgi":
			e.searches.Add(1)
			assert.Equal(t, "5", q.Get("retmax"))
			assert.Equal(t, "plantar fasciitis", q.Get("term"))
			_, _ = w.Write([]byte(`{"esearchresult":{"idlist":` + e.idlist + `}}`))
		case "/esummary.fcgi":
			assert.Equal(t, "111,222", q.Get("id"))
			_, _ = w.Write([]byte(summaryJSON))
		case "/efetch.fcgi":
			if e.efetchErr {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			assert.Equal(t, "xml", q.Get("retmode"))
			_, _ = w.Write([]byte(efetchXML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{WithBaseURL(srv.URL), WithPolicy(resilience.Policy{})}
	return NewClient(append(base, opts...)...)
}

func TestSearch(t *testing.T) {
	e := &eutils{idlist: `["111","222"]`}
	client := newTestClient(e.server(t))

	found, err := client.Search(context.Background(), "  plantar   fasciitis ")
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, types.Citation{
		PMID:     "111",
		Title:    "Plantar fasciitis: a review.",
		Source:   "Foot Ankle Int",
		Year:     "2021",
		Authors:  []string{"Silva A", "Costa B", "Lima C"},
		Abstract: "BACKGROUND: Heel pain is common.\nCONCLUSIONS: Stretching helps.",
	}, found[0])
	assert.Equal(t, "Journal of Foot Research", found[1].Source)
	assert.Equal(t, "2019", found[1].Year)
	assert.Equal(t, "Orthoses reduce pain.", found[1].Abstract)
}

func TestSearch_NoResults(t *testing.T) {
	e := &eutils{idlist: `[]`}
	found, err := newTestClient(e.server(t)).Search(context.Background(), "plantar fasciitis")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSearch_AbstractFailureKeepsMetadata(t *testing.T) {
	e := &eutils{idlist: `["111","222"]`, efetchErr: true}
	found, err := newTestClient(e.server(t)).Search(context.Background(), "plantar fasciitis")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Empty(t, found[0].Abstract)
	assert.Equal(t, "Plantar fasciitis: a review.", found[0].Title)
}

func TestSearch_Cached(t *testing.T) {
	e := &eutils{idlist: `["111","222"]`}
	client := newTestClient(e.server(t), WithCache(cache.NewMemory()))

	for i := 0; i < 3; i++ {
		found, err := client.Search(context.Background(), "plantar fasciitis")
		require.NoError(t, err)
		assert.Len(t, found, 2)
	}
	assert.Equal(t, int32(1), e.searches.Load())
}

func TestSearch_BlankTerm(t *testing.T) {
	_, err := NewClient().Search(context.Background(), "   ")
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestYearOf(t *testing.T) {
	assert.Equal(t, "2021", yearOf("2021 Mar 5"))
	assert.Equal(t, "2019", yearOf("2019"))
	assert.Equal(t, "", yearOf(""))
	assert.Equal(t, "", yearOf("Mar"))
}
