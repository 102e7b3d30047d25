package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kdriscoll/histrag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func archiveHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch {
		case r.URL.Path == "/documents/inaugural-address":
			fmt.Fprint(w, `
				<html><body>
					<span class="date-display-single">January 20, 2001</span>
					<div class="field-docs-content">
						<p>My fellow citizens.</p>
						<p>Thank you.</p>
					</div>
				</body></html>`)
		case r.URL.Path == "/documents/state-of-the-union":
			fmt.Fprint(w, `
				<html><body>
					<span class="date-display-single">January 29, 2002</span>
					<div class="field-docs-content">Our nation is at war.</div>
				</body></html>`)
		case r.URL.Path == "/documents/undated-remarks":
			fmt.Fprint(w, `
				<html><body>
					<div class="field-docs-content">Remarks without a date.</div>
				</body></html>`)
		case r.URL.Query().Get("page") == "1":
			fmt.Fprint(w, `
				<html><body>
					<div class="views-field-title">
						<a href="/documents/undated-remarks">Undated Remarks</a>
					</div>
				</body></html>`)
		default:
			fmt.Fprint(w, `
				<html><body>
					<div class="views-field-title">
						<a href="/documents/inaugural-address">Inaugural Address</a>
					</div>
					<div class="views-field-title">
						<a href="/documents/state-of-the-union">State of the Union</a>
					</div>
					<a title="Go to next page" href="?page=1">next</a>
				</body></html>`)
		}
	}
}

func TestScrapePaginatedArchive(t *testing.T) {
	server := httptest.NewServer(archiveHandler(t))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   server.URL,
		RateLimit: 100,
	})
	require.NoError(t, err)

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "Inaugural Address", docs[0].Title)
	assert.Equal(t, "2001-01-20", docs[0].Date)
	assert.Contains(t, docs[0].Content, "My fellow citizens.")
	assert.Contains(t, docs[0].Content, "Thank you.")

	assert.Equal(t, "State of the Union", docs[1].Title)
	assert.Equal(t, "2002-01-29", docs[1].Date)

	assert.Equal(t, "Undated Remarks", docs[2].Title)
	assert.Equal(t, models.UnknownDate, docs[2].Date)

	for _, doc := range docs {
		assert.NotEmpty(t, doc.ID)
		assert.NotEmpty(t, doc.Source)
		assert.NotNil(t, doc.Metadata)
	}
}

func TestScrapeMaxPages(t *testing.T) {
	server := httptest.NewServer(archiveHandler(t))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   server.URL,
		MaxPages:  1,
		RateLimit: 100,
	})
	require.NoError(t, err)

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestScrapeProgressCallback(t *testing.T) {
	server := httptest.NewServer(archiveHandler(t))
	defer server.Close()

	var seen []string
	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   server.URL,
		RateLimit: 100,
		OnProgress: func(title string) {
			seen = append(seen, title)
		},
	})
	require.NoError(t, err)

	_, err = s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"Inaugural Address", "State of the Union", "Undated Remarks"}, seen)
}

func TestScrapeSkipsFailedDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/documents/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/documents/good" {
			fmt.Fprint(w, `<html><body>
				<span class="date-display-single">March 1, 2003</span>
				<div class="field-docs-content">Still here.</div>
			</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
			<div class="views-field-title"><a href="/documents/broken">Broken</a></div>
			<div class="views-field-title"><a href="/documents/good">Good</a></div>
		</body></html>`)
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   server.URL,
		RateLimit: 1000,
		Retries:   1,
	})
	require.NoError(t, err)

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Good", docs[0].Title)
}

func TestScrapeIgnoresOffsiteLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<div class="views-field-title"><a href="https://elsewhere.example/doc">Offsite</a></div>
		</body></html>`)
	}))
	defer server.Close()

	s, err := NewWithConfig(ScraperConfig{
		BaseURL:   server.URL,
		RateLimit: 100,
	})
	require.NoError(t, err)

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"January 20, 2001", "2001-01-20"},
		{"July 4, 1976", "1976-07-04"},
		{"December 31, 1999", "1999-12-31"},
		{"not a date", models.UnknownDate},
		{"", models.UnknownDate},
		{"2001-01-20", models.UnknownDate},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDate(tt.input, nil))
		})
	}
}

func TestPageURL(t *testing.T) {
	s, err := New("https://www.presidency.ucsb.edu/people/president/george-w-bush")
	require.NoError(t, err)

	assert.Equal(t,
		"https://www.presidency.ucsb.edu/people/president/george-w-bush",
		s.pageURL(s.config.BaseURL, 0))
	assert.Equal(t,
		"https://www.presidency.ucsb.edu/people/president/george-w-bush?page=2",
		s.pageURL(s.config.BaseURL, 2))
	assert.Equal(t,
		"https://example.com/list?items_per_page=25&page=1",
		s.pageURL("https://example.com/list?items_per_page=25", 1))
}

func TestScraperConfigDefaults(t *testing.T) {
	s, err := New("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.config.Timeout)
	assert.Equal(t, 3, s.config.Retries)
	assert.Equal(t, "example.com", s.baseHost)

	_, err = New("not a url at all\x7f")
	assert.Error(t, err)
}
