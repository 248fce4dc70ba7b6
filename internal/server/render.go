package server

import (
	"fmt"
	"html"
	"strings"

	"github.com/funtuan/government-job-backend/internal/model"
	"github.com/funtuan/government-job-backend/internal/worker"
)

const viewSeparator = "\n\n=======================\n\n"

// renderView turns a match set into the plain HTML page a subscriber lands on
// from the summary message. Listing text is escaped; detail links become
// anchors.
func renderView(listings []model.Listing) string {
	var b strings.Builder

	if len(listings) > 0 {
		b.WriteString(fmt.Sprintf("符合 %d 個職缺\n\n", len(listings)))
	} else {
		b.WriteString("無新增符合職缺\n\n")
	}

	blocks := make([]string, 0, len(listings))
	for _, listing := range listings {
		blocks = append(blocks, linkify(html.EscapeString(worker.FormatListing(listing.Fields))))
	}
	b.WriteString(strings.Join(blocks, viewSeparator))

	return strings.ReplaceAll(b.String(), "\n", "<br>")
}

// linkify rewrites the 連結 line of a formatted listing into an anchor.
func linkify(block string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		if url, ok := strings.CutPrefix(line, "連結: "); ok {
			lines[i] = fmt.Sprintf(`連結: <a href="%s">%s</a>`, url, url)
		}
	}
	return strings.Join(lines, "\n")
}
