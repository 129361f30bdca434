// Package pubmed is a minimal client for the NCBI E-utilities API. It runs an
// esearch for PMIDs and an efetch for article metadata, and degrades to an
// empty result set on any failure so the pipeline never stalls on PubMed.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// toolName identifies this client to NCBI per their usage policy.
const toolName = "AdvocaiAgent"

// Article is one PubMed record with the fields the Clinician stage consumes.
type Article struct {
	PubmedID     string `json:"pubmed_id"`
	ArticleTitle string `json:"article_title"`
	Abstract     string `json:"abstract"`
}

// Config configures the client.
type Config struct {
	BaseURL    string `yaml:"base_url" env:"PUBMED_BASE_URL" env-default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"`
	APIKey     string `yaml:"-" env:"PUBMED_API_KEY"`
	MaxResults int    `yaml:"max_results" env:"PUBMED_MAX_RESULTS" env-default:"3"`
}

// Client calls the E-utilities endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     *zap.Logger
	retryWait  time.Duration
}

// New builds a client. A nil logger is replaced with a no-op one.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("pubmed"),
		retryWait:  300 * time.Millisecond,
	}
}

// Search runs esearch then efetch. It never returns an error for upstream
// failures; those come back as an empty slice so the caller can fall through
// to a manual-review path.
func (c *Client) Search(ctx context.Context, query string) []Article {
	if len(strings.TrimSpace(query)) < 6 {
		return nil
	}

	ids := c.esearch(ctx, query)
	if len(ids) == 0 {
		return nil
	}
	return c.efetch(ctx, ids)
}

func (c *Client) esearch(ctx context.Context, query string) []string {
	params := url.Values{
		"db":         {"pubmed"},
		"term":       {query},
		"retmode":    {"json"},
		"retmax":     {fmt.Sprint(c.maxResults)},
		"usehistory": {"y"},
		"tool":       {toolName},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		c.logger.Warn("esearch failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	var result struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("esearch decode failed", zap.Error(err))
		return nil
	}
	return result.ESearchResult.IDList
}

func (c *Client) efetch(ctx context.Context, ids []string) []Article {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
		"tool":    {toolName},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		c.logger.Warn("efetch failed", zap.Error(err))
		return nil
	}

	articles, err := parseArticleXML(body)
	if err != nil {
		c.logger.Warn("efetch decode failed", zap.Error(err))
		return nil
	}
	return articles
}

// get issues a GET with retries on any failure, including non-2xx statuses.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + endpoint + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%s returned %d", endpoint, resp.StatusCode)
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

var whitespaceRE = regexp.MustCompile(`\s+`)

type efetchDoc struct {
	Articles []struct {
		PMID     string     `xml:"MedlineCitation>PMID"`
		Title    string     `xml:"MedlineCitation>Article>ArticleTitle"`
		Abstract []abstract `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	} `xml:"PubmedArticle"`
}

// abstract flattens an AbstractText node, which may contain nested markup.
type abstract struct {
	Text string `xml:",chardata"`
}

func parseArticleXML(body []byte) ([]Article, error) {
	var doc efetchDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(doc.Articles))
	for _, a := range doc.Articles {
		pmid := strings.TrimSpace(a.PMID)
		if pmid == "" {
			pmid = "N/A"
		}
		title := strings.TrimSpace(a.Title)
		if title == "" {
			title = "No Title"
		}

		var parts []string
		for _, abs := range a.Abstract {
			if t := collapseWhitespace(abs.Text); t != "" {
				parts = append(parts, t)
			}
		}

		articles = append(articles, Article{
			PubmedID:     pmid,
			ArticleTitle: title,
			Abstract:     strings.Join(parts, " "),
		})
	}
	return articles, nil
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}
