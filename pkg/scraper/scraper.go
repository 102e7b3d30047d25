package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kdriscoll/histrag/internal/models"
	"golang.org/x/time/rate"
)

// Selectors for the American Presidency Project archive layout.
const (
	documentLinkSelector = ".views-field-title a"
	contentSelector      = ".field-docs-content"
	dateSelector         = ".date-display-single"
	nextPageSelector     = "a[title='Go to next page']"
)

const noContentPlaceholder = "NO CONTENT FOUND"

type ScraperConfig struct {
	BaseURL    string
	MaxPages   int     // 0 means follow pagination to the end
	RateLimit  float64 // requests per second
	Retries    int
	Timeout    time.Duration
	Logger     *log.Logger
	OnProgress func(title string)
}

type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
	logger   *log.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 0.5
	}
	if config.Retries == 0 {
		config.Retries = 3
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("archive URL %q has no host", config.BaseURL)
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
		logger:   config.Logger,
	}, nil
}

func New(baseURL string) (*Scraper, error) {
	return NewWithConfig(ScraperConfig{BaseURL: baseURL})
}

// FileLogger opens a file-backed logger for scrape diagnostics. The caller
// closes the returned file when the run is done.
func FileLogger(path string) (*log.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open scrape log: %w", err)
	}
	return log.New(f, "", log.LstdFlags), f, nil
}

// Scrape walks the paginated archive listing and returns every document it
// can extract. Per-document failures are logged and skipped; only
// listing-level failures abort the run.
func (s *Scraper) Scrape(ctx context.Context, baseURL string) ([]models.Document, error) {
	var documents []models.Document

	page := 0
	for {
		s.logger.Printf("processing page %d", page+1)

		listing, err := s.fetch(ctx, s.pageURL(baseURL, page))
		if err != nil {
			return documents, fmt.Errorf("failed to fetch listing page %d: %w", page+1, err)
		}

		links := s.documentLinks(baseURL, listing)
		if len(links) == 0 {
			s.logger.Printf("no document links on page %d, stopping", page+1)
			break
		}

		for _, link := range links {
			doc, err := s.scrapeDocument(ctx, link.url, link.title)
			if err != nil {
				s.logger.Printf("error processing document %q: %v", link.title, err)
				continue
			}
			documents = append(documents, doc)
			if s.config.OnProgress != nil {
				s.config.OnProgress(doc.Title)
			}
		}

		if listing.Find(nextPageSelector).Length() == 0 {
			s.logger.Printf("no more pages to process")
			break
		}

		page++
		if s.config.MaxPages > 0 && page >= s.config.MaxPages {
			s.logger.Printf("reached max pages (%d), stopping", s.config.MaxPages)
			break
		}
	}

	return documents, nil
}

type docLink struct {
	url   string
	title string
}

func (s *Scraper) pageURL(baseURL string, page int) string {
	if page == 0 {
		return baseURL
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", baseURL, sep, page)
}

func (s *Scraper) documentLinks(baseURL string, listing *goquery.Document) []docLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []docLink
	listing.Find(documentLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			s.logger.Printf("error parsing link %q: %v", href, err)
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != s.baseHost {
			return
		}
		links = append(links, docLink{
			url:   abs.String(),
			title: strings.TrimSpace(sel.Text()),
		})
	})
	return links
}

func (s *Scraper) scrapeDocument(ctx context.Context, docURL, title string) (models.Document, error) {
	page, err := s.fetch(ctx, docURL)
	if err != nil {
		return models.Document{}, err
	}

	date := models.UnknownDate
	if sel := page.Find(dateSelector); sel.Length() > 0 {
		date = NormalizeDate(strings.TrimSpace(sel.First().Text()), s.logger)
	} else {
		s.logger.Printf("no date element for %q", title)
	}

	content := noContentPlaceholder
	if sel := page.Find(contentSelector); sel.Length() > 0 {
		content = cleanContent(sel.First().Text())
	} else {
		s.logger.Printf("no content element for %q", title)
	}

	if title == "" {
		title = strings.TrimSpace(page.Find("title").Text())
	}

	doc := models.NewDocument(docURL, title, date, content)
	doc.Metadata = map[string]interface{}{
		"scrapedAt": time.Now().UTC().Format(time.RFC3339),
	}
	s.logger.Printf("scraped document %q (%s)", doc.Title, doc.Date)
	return doc, nil
}

// fetch retrieves and parses a page, retrying transient failures with a
// short backoff. Rate limiting applies before every attempt.
func (s *Scraper) fetch(ctx context.Context, urlStr string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			s.logger.Printf("retrying %s in %s (attempt %d)", urlStr, backoff, attempt+1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		doc, err := s.fetchOnce(ctx, urlStr)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("giving up on %s: %w", urlStr, lastErr)
}

func (s *Scraper) fetchOnce(ctx context.Context, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// NormalizeDate converts "Month DD, YYYY" to "YYYY-MM-DD". Unparseable
// input yields the unknown-date sentinel.
func NormalizeDate(dateStr string, logger *log.Logger) string {
	t, err := time.Parse("January 2, 2006", dateStr)
	if err != nil {
		if logger != nil {
			logger.Printf("error parsing date %q: %v", dateStr, err)
		}
		return models.UnknownDate
	}
	return t.Format("2006-01-02")
}

func cleanContent(content string) string {
	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
