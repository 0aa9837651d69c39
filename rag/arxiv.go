package rag

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultArxivURL = "http://export.arxiv.org/api/query"

// Paper is one arXiv document with the metadata the experiments use. The
// abstract doubles as the reference answer when the paper is sampled as a
// test query.
type Paper struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	Authors   []string  `json:"authors"`
	Published time.Time `json:"published"`
	PDFURL    string    `json:"pdf_url"`
}

// ArxivClient fetches paper metadata and PDFs from the arXiv Atom API.
type ArxivClient struct {
	baseURL    string
	httpClient *http.Client
}

type ArxivOption func(*ArxivClient)

// WithArxivURL overrides the API endpoint, mainly for tests.
func WithArxivURL(u string) ArxivOption {
	return func(c *ArxivClient) {
		c.baseURL = u
	}
}

func WithArxivHTTPClient(client *http.Client) ArxivOption {
	return func(c *ArxivClient) {
		c.httpClient = client
	}
}

func NewArxivClient(opts ...ArxivOption) *ArxivClient {
	c := &ArxivClient{
		baseURL:    defaultArxivURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// Search returns up to limit papers matching the query that were published in
// the given year. Results are requested newest first and filtered by the
// published date, so the feed is over-fetched relative to limit.
func (c *ArxivClient) Search(ctx context.Context, query string, year, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", limit*2))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arxiv request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("arxiv API returned status %d: %s", resp.StatusCode, string(body))
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode arxiv feed: %w", err)
	}

	papers := make([]Paper, 0, limit)
	for _, entry := range feed.Entries {
		published, err := time.Parse(time.RFC3339, entry.Published)
		if err != nil {
			GlobalLogger.Warn("Skipping entry with unparseable published date", "id", entry.ID, "published", entry.Published)
			continue
		}
		if year != 0 && published.Year() != year {
			continue
		}

		authors := make([]string, len(entry.Authors))
		for i, a := range entry.Authors {
			authors[i] = a.Name
		}

		papers = append(papers, Paper{
			ID:        arxivID(entry.ID),
			Title:     collapseWhitespace(entry.Title),
			Abstract:  collapseWhitespace(entry.Summary),
			Authors:   authors,
			Published: published,
			PDFURL:    pdfLink(entry),
		})
		if len(papers) >= limit {
			break
		}
	}

	GlobalLogger.Info("Fetched papers from arxiv", "query", query, "year", year, "count", len(papers))
	return papers, nil
}

// DownloadPDF fetches the PDF body for a paper.
func (c *ArxivClient) DownloadPDF(ctx context.Context, paper Paper) ([]byte, error) {
	if paper.PDFURL == "" {
		return nil, fmt.Errorf("paper %s has no PDF link", paper.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paper.PDFURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PDF download failed for %s: %w", paper.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF download for %s returned status %d", paper.ID, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// arxivID strips the entry URL down to the bare identifier, e.g.
// http://arxiv.org/abs/2501.01234v1 becomes 2501.01234v1.
func arxivID(entryID string) string {
	if i := strings.LastIndex(entryID, "/"); i >= 0 {
		return entryID[i+1:]
	}
	return entryID
}

func pdfLink(entry atomEntry) string {
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			return link.Href
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
