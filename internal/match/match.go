// Package match evaluates filter conditions against normalized listings.
package match

import (
	"slices"
	"strings"

	"github.com/funtuan/government-job-backend/internal/model"
)

// Matches reports whether the listing satisfies every present constraint of
// the condition. Absent fields are unconstrained, so the empty condition
// matches every listing. The function is pure and deterministic.
func Matches(listing model.Listing, cond model.FilterCondition) bool {
	if cond.JobType != nil && !strings.Contains(listing.Fields.JobType, *cond.JobType) {
		return false
	}
	if cond.Regions != nil && !slices.Contains(cond.Regions, listing.Region) {
		return false
	}
	if cond.RequiresAccessibility != nil && listing.RequiresAccessibility != *cond.RequiresAccessibility {
		return false
	}
	// Job-family matching is substring containment rather than equality; the
	// upstream family codes vary in wording across agencies.
	if cond.JobFamilies != nil && !containsAnyFamily(listing.Fields.Sysnam, cond.JobFamilies) {
		return false
	}
	return true
}

func containsAnyFamily(sysnam string, families []string) bool {
	for _, family := range families {
		if strings.Contains(sysnam, family) {
			return true
		}
	}
	return false
}
