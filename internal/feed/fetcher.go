// Package feed fetches the upstream job-listing page and normalizes its
// entries into the unified Listing model.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/funtuan/government-job-backend/internal/model"
)

// FormatError reports that the feed page no longer carries a parseable
// listing array. A cycle hit by this error must not publish a snapshot.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed format: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("feed format: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// The listing data is embedded in the page as a JS array literal.
var jobdataRe = regexp.MustCompile(`var jobdata = (\[.*\])`)

// rawListing mirrors one element of the embedded jobdata array.
type rawListing struct {
	Fields model.ListingFields `json:"fields"`
}

// Fetcher retrieves and normalizes the upstream feed.
type Fetcher struct {
	url        string
	client     *http.Client
	normalizer *Normalizer
}

// NewFetcher creates a Fetcher. The client's timeout bounds the whole fetch.
func NewFetcher(url string, client *http.Client, normalizer *Normalizer) *Fetcher {
	return &Fetcher{
		url:        url,
		client:     client,
		normalizer: normalizer,
	}
}

// FetchAll retrieves the feed page, extracts the embedded listing array and
// normalizes every entry. Returns *FormatError when the array cannot be
// located or parsed.
func (f *Fetcher) FetchAll(ctx context.Context) ([]model.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed fetch: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("feed fetch")}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FormatError{Reason: "parse html", Err: err}
	}

	raw, err := extractJobdata(doc)
	if err != nil {
		return nil, err
	}

	listings := make([]model.Listing, 0, len(raw))
	for _, entry := range raw {
		listings = append(listings, f.normalizer.Normalize(entry.Fields))
	}

	return listings, nil
}

// extractJobdata scans the page's script elements for the jobdata literal.
func extractJobdata(doc *goquery.Document) ([]rawListing, error) {
	var literal string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := jobdataRe.FindStringSubmatch(s.Text()); m != nil {
			literal = m[1]
			return false
		}
		return true
	})

	if literal == "" {
		return nil, &FormatError{Reason: "jobdata literal not found"}
	}

	var raw []rawListing
	if err := json.Unmarshal([]byte(strings.TrimSpace(literal)), &raw); err != nil {
		return nil, &FormatError{Reason: "parse jobdata literal", Err: err}
	}

	return raw, nil
}
