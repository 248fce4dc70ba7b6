package worker

import (
	"fmt"

	"github.com/funtuan/government-job-backend/internal/model"
)

// FormatListing renders one listing as the multi-line notification message.
// The label set and ordering are the subscriber-facing format and must stay
// stable.
func FormatListing(fields model.ListingFields) string {
	return fmt.Sprintf(
		"單位: %s\n地點: %s\n職稱職等: %s %s - %s (%s~%s)\n工作內容: %s\n時間: %s ~ %s\n連結: %s",
		fields.OrgName,
		fields.WorkAddr,
		fields.Sysnam,
		fields.Title,
		fields.JobType,
		fields.RankFrom,
		fields.RankTo,
		fields.WorkItem,
		fields.DateFrom,
		fields.DateTo,
		fields.ViewURL,
	)
}
