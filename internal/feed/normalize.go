package feed

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/funtuan/government-job-backend/internal/config"
	"github.com/funtuan/government-job-backend/internal/model"
)

var (
	// Stable identifier embedded in the detail-view URL.
	workIDRe = regexp.MustCompile(`work_id=(\d+)`)
	// Longest address prefix ending in a city/county suffix.
	regionRe = regexp.MustCompile(`(.+[市縣]).+`)
)

// Normalizer derives the computed listing attributes: the stable identifier,
// the canonical region, and the accessibility-certificate flag. The phrase
// heuristics are configuration, not code.
type Normalizer struct {
	phrase      string
	qualifierRe *regexp.Regexp
}

// NewNormalizer compiles the accessibility heuristics from config.
func NewNormalizer(cfg config.AccessibilityConfig) *Normalizer {
	pattern := fmt.Sprintf("%s.{0,%d}%s",
		regexp.QuoteMeta(cfg.Phrase), cfg.QualifierWindow, regexp.QuoteMeta(cfg.Qualifier))
	return &Normalizer{
		phrase:      cfg.Phrase,
		qualifierRe: regexp.MustCompile(pattern),
	}
}

// Normalize computes the derived fields for one raw feed entry. It is a pure
// function: identical input always yields an identical listing.
func (n *Normalizer) Normalize(fields model.ListingFields) model.Listing {
	return model.Listing{
		ID:                    extractWorkID(fields.ViewURL),
		Region:                extractRegion(fields.WorkAddr),
		RequiresAccessibility: n.requiresAccessibility(fields),
		Fields:                fields,
	}
}

// extractWorkID pulls the work_id query parameter out of the detail URL.
// URLs without one fall back to the raw URL, which is equally stable.
func extractWorkID(viewURL string) string {
	if m := workIDRe.FindStringSubmatch(viewURL); m != nil {
		return m[1]
	}
	return viewURL
}

// extractRegion parses the city/county out of a work address. The legacy 台
// variant is canonicalized to 臺 so region allow-lists need only one spelling.
// Unparseable addresses map to the RegionUnknown sentinel, never "".
func extractRegion(workAddr string) string {
	m := regionRe.FindStringSubmatch(workAddr)
	if m == nil {
		return model.RegionUnknown
	}
	return strings.Replace(m[1], "台", "臺", 1)
}

// requiresAccessibility reports whether the listing mandates an accessibility
// certificate. A phrase hit in the eligibility text does not count when the
// qualifier follows within the configured window (requirement is a preference
// only); a hit in the title always counts.
func (n *Normalizer) requiresAccessibility(fields model.ListingFields) bool {
	if strings.Contains(fields.WorkQuality, n.phrase) && !n.qualifierRe.MatchString(fields.WorkQuality) {
		return true
	}
	return strings.Contains(fields.Title, n.phrase)
}
