// Package catalog implements the Source operators that list candidate
// papers. ArxivSource is the only one today; it queries arXiv's public Atom
// export API the way engine/scraper queries YouTube's search API in the
// teacher repo: a rate-limited http.Client plus a typed decode of the wire
// response.
package catalog

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paperflow/paperflow/engine/dag"
	"github.com/paperflow/paperflow/engine/paper"
	"golang.org/x/time/rate"
)

const arxivBaseURL = "http://arxiv.org/"
const arxivAPI = "https://export.arxiv.org/api/query"

// ArxivSource lists papers matching one or more topics from arXiv's Atom
// export API, sorted by submission date. It implements dag.Operator and
// ignores its Process input: it is always a DAG root.
type ArxivSource struct {
	dag.NopLifecycle

	Topics             []string
	SearchOffset       int
	SearchLimit        int
	RetryWhenEmpty     bool
	MaxRetries         int // defaults to 10, matching the original implementation

	// APIURL overrides arxivAPI; tests point this at an httptest.Server.
	APIURL string

	httpClient  *http.Client
	rateLimiter *rate.Limiter
	log         *slog.Logger
}

// NewArxivSource builds a Source for the given topics. An empty topics list
// is a programmer error the caller must avoid; arXiv has no "everything"
// query.
func NewArxivSource(topics []string, searchOffset, searchLimit int, retryWhenEmpty bool, log *slog.Logger) *ArxivSource {
	if log == nil {
		log = slog.Default()
	}
	return &ArxivSource{
		Topics:         topics,
		SearchOffset:   searchOffset,
		SearchLimit:    searchLimit,
		RetryWhenEmpty: retryWhenEmpty,
		MaxRetries:     10,
		APIURL:         arxivAPI,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		rateLimiter:    rate.NewLimiter(rate.Every(3*time.Second), 1), // arXiv asks for 1 req / 3s
		log:            log,
	}
}

// feed mirrors the Atom fields of an arXiv query response.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Updated   string   `xml:"updated"`
	Comment   string   `xml:"comment"`
	Authors   []author `xml:"author"`
	Category  category `xml:"primary_category"`
}

type author struct {
	Name string `xml:"name"`
}

type category struct {
	Term string `xml:"term,attr"`
}

func (s *ArxivSource) query() string {
	parts := make([]string, len(s.Topics))
	for i, t := range s.Topics {
		parts[i] = fmt.Sprintf("%q", t)
	}
	return strings.Join(parts, " OR ")
}

// Process queries arXiv once (or, if RetryWhenEmpty is set, up to MaxRetries
// times) and returns the resulting []paper.Paper.
func (s *ArxivSource) Process(ctx context.Context, _ any) (any, error) {
	var papers []paper.Paper
	var err error

	for attempt := 0; attempt < s.MaxRetries; attempt++ {
		papers, err = s.fetchOnce(ctx)
		if err != nil {
			return nil, err
		}
		if len(papers) > 0 || !s.RetryWhenEmpty {
			break
		}
		s.log.Info("catalog: empty result, retrying", "attempt", attempt+1, "topics", s.Topics)
	}

	s.log.Info("catalog: fetched papers", "count", len(papers), "offset", s.SearchOffset, "limit", s.SearchLimit)
	return papers, nil
}

func (s *ArxivSource) fetchOnce(ctx context.Context) ([]paper.Paper, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"search_query": {"all:" + s.query()},
		"start":        {strconv.Itoa(s.SearchOffset)},
		"max_results":  {strconv.Itoa(s.SearchLimit)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	apiURL := s.APIURL
	if apiURL == "" {
		apiURL = arxivAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: arxiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: arxiv returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read arxiv response: %w", err)
	}

	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode arxiv response: %w", err)
	}

	papers := make([]paper.Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		papers = append(papers, entryToPaper(e))
		if len(papers) >= s.SearchLimit {
			break
		}
	}
	return papers, nil
}

// entryToPaper applies the normalization rules from the original
// implementation: strip the "vN" version suffix from the id, rewrite the url
// to the canonical abs/<id> form, comma-join authors, and format both dates
// as YYYY-MM-DD.
func entryToPaper(e entry) paper.Paper {
	rawID := lastPathSegment(e.ID)
	id := CanonicalID(rawID)

	authors := make([]string, len(e.Authors))
	for i, a := range e.Authors {
		authors[i] = a.Name
	}

	return paper.Paper{
		ID:          id,
		Title:       strings.TrimSpace(collapseWhitespace(e.Title)),
		URL:         arxivBaseURL + "abs/" + id,
		Abstract:    strings.ReplaceAll(strings.TrimSpace(e.Summary), "\n", " "),
		Authors:     strings.Join(authors, ", "),
		Category:    e.Category.Term,
		PublishDate: formatArxivDate(e.Published),
		UpdateDate:  formatArxivDate(e.Updated),
		Comments:    strings.TrimSpace(e.Comment),
	}
}

// CanonicalID strips arXiv's version suffix: "2108.09112v1" -> "2108.09112".
// This is the normalization invariant I5 requires of every Paper id.
func CanonicalID(rawID string) string {
	if i := strings.LastIndex(rawID, "v"); i != -1 {
		if isAllDigits(rawID[i+1:]) {
			return rawID[:i]
		}
	}
	return rawID
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func lastPathSegment(id string) string {
	if i := strings.LastIndex(id, "/"); i != -1 {
		return id[i+1:]
	}
	return id
}

func formatArxivDate(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
