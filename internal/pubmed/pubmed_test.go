package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEFetch = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>12345678</PMID>
      <Article>
        <ArticleTitle>Proton therapy outcomes in pediatric oncology</ArticleTitle>
        <Abstract>
          <AbstractText>Background   text with
          irregular    whitespace.</AbstractText>
          <AbstractText Label="RESULTS">Improved survival was observed.</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID></PMID>
      <Article>
        <ArticleTitle></ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL + "/", MaxResults: 3}, nil)
	c.retryWait = time.Millisecond
	return c
}

func TestSearchHappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
		assert.Equal(t, "proton therapy pediatric", r.URL.Query().Get("term"))
		assert.Equal(t, "3", r.URL.Query().Get("retmax"))
		w.Write([]byte(`{"esearchresult": {"idlist": ["12345678", "87654321"]}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12345678,87654321", r.URL.Query().Get("id"))
		w.Write([]byte(sampleEFetch))
	})

	c := newTestClient(t, mux)
	articles := c.Search(context.Background(), "proton therapy pediatric")

	require.Len(t, articles, 2)
	assert.Equal(t, "12345678", articles[0].PubmedID)
	assert.Equal(t, "Proton therapy outcomes in pediatric oncology", articles[0].ArticleTitle)
	assert.Equal(t, "Background text with irregular whitespace. Improved survival was observed.", articles[0].Abstract)

	assert.Equal(t, "N/A", articles[1].PubmedID)
	assert.Equal(t, "No Title", articles[1].ArticleTitle)
	assert.Empty(t, articles[1].Abstract)
}

func TestSearchShortQuerySkipped(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for a trivial query")
	}))
	assert.Nil(t, c.Search(context.Background(), "  mri "))
}

func TestSearchEmptyIDList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"esearchresult": {"idlist": []}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("efetch must not run without ids")
	})

	c := newTestClient(t, mux)
	assert.Nil(t, c.Search(context.Background(), "obscure unmatched query"))
}

func TestSearchRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"esearchresult": {"idlist": ["11111111"]}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleEFetch))
	})

	c := newTestClient(t, mux)
	articles := c.Search(context.Background(), "rituximab refractory lupus")
	require.NotEmpty(t, articles)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestSearchUpstreamDownReturnsEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	assert.Nil(t, c.Search(context.Background(), "anything at all here"))
}

func TestSearchMalformedXML(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"esearchresult": {"idlist": ["22222222"]}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<not-xml"))
	})

	c := newTestClient(t, mux)
	assert.Nil(t, c.Search(context.Background(), "valid query string here"))
}
