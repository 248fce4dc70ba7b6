package match

import (
	"testing"

	"github.com/funtuan/government-job-backend/internal/model"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func listing(region, jobType, sysnam string, accessibility bool) model.Listing {
	return model.Listing{
		Region:                region,
		RequiresAccessibility: accessibility,
		Fields: model.ListingFields{
			JobType: jobType,
			Sysnam:  sysnam,
		},
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		listing model.Listing
		cond    model.FilterCondition
		want    bool
	}{
		{
			name:    "empty condition matches everything",
			listing: listing(model.RegionUnknown, "委任", "綜合行政", false),
			cond:    model.FilterCondition{},
			want:    true,
		},
		{
			name:    "job type substring match",
			listing: listing("臺北市", "委任或薦任", "綜合行政", false),
			cond:    model.FilterCondition{JobType: strPtr("薦任")},
			want:    true,
		},
		{
			name:    "job type miss",
			listing: listing("臺北市", "委任", "綜合行政", false),
			cond:    model.FilterCondition{JobType: strPtr("簡任")},
			want:    false,
		},
		{
			name:    "region in allow-list",
			listing: listing("高雄市", "委任", "綜合行政", false),
			cond:    model.FilterCondition{Regions: []string{"臺北市", "高雄市"}},
			want:    true,
		},
		{
			name:    "region not in allow-list",
			listing: listing("臺中市", "委任", "綜合行政", false),
			cond:    model.FilterCondition{Regions: []string{"臺北市"}},
			want:    false,
		},
		{
			name:    "unknown region never satisfies an allow-list",
			listing: listing(model.RegionUnknown, "委任", "綜合行政", false),
			cond:    model.FilterCondition{Regions: []string{"臺北市", "高雄市"}},
			want:    false,
		},
		{
			name:    "accessibility flag required and present",
			listing: listing("臺北市", "委任", "綜合行政", true),
			cond:    model.FilterCondition{RequiresAccessibility: boolPtr(true)},
			want:    true,
		},
		{
			name:    "accessibility flag excluded",
			listing: listing("臺北市", "委任", "綜合行政", true),
			cond:    model.FilterCondition{RequiresAccessibility: boolPtr(false)},
			want:    false,
		},
		{
			name:    "job family match-any by substring",
			listing: listing("臺北市", "委任", "一般行政、綜合行政", false),
			cond:    model.FilterCondition{JobFamilies: []string{"文教行政", "綜合行政"}},
			want:    true,
		},
		{
			name:    "no job family matches",
			listing: listing("臺北市", "委任", "機械工程", false),
			cond:    model.FilterCondition{JobFamilies: []string{"文教行政", "綜合行政"}},
			want:    false,
		},
		{
			name:    "all constraints must hold",
			listing: listing("臺北市", "委任", "綜合行政", false),
			cond: model.FilterCondition{
				JobType: strPtr("委任"),
				Regions: []string{"高雄市"},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.listing, tt.cond); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
