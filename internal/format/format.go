// Package format converts structured query results into the plain-text and
// HTML fragments that make up a single notification email.
package format

import (
	"fmt"
	"strings"
)

// RecordSummary is one search result inside a query's result set.
type RecordSummary struct {
	Bibcode    string   `json:"bibcode"`
	Title      []string `json:"title"`
	AuthorNorm []string `json:"author_norm"`
}

// QueryResult is the result set of one saved query.
type QueryResult struct {
	Name     string          `json:"name"`
	QueryURL string          `json:"query_url"`
	Results  []RecordSummary `json:"results"`
}

// Column layouts supported by the HTML fragment.
const (
	SingleColumn = 1
	TwoColumn    = 2
)

// Formatter renders notification payloads. AbstractBaseURL is the UI base
// used for per-record abstract links.
type Formatter struct {
	AbstractBaseURL string
}

// NewFormatter creates a Formatter with the given UI base URL.
func NewFormatter(abstractBaseURL string) *Formatter {
	return &Formatter{AbstractBaseURL: abstractBaseURL}
}

// FirstAuthorFormatted renders the first author as "Name,+:" when more than
// one author exists, the bare name when exactly one exists, and an empty
// string when the author list is absent.
func FirstAuthorFormatted(r RecordSummary) string {
	switch {
	case len(r.AuthorNorm) == 0:
		return ""
	case len(r.AuthorNorm) == 1:
		return r.AuthorNorm[0]
	default:
		return r.AuthorNorm[0] + ",+:"
	}
}

func firstTitle(r RecordSummary) string {
	if len(r.Title) == 0 {
		return ""
	}
	return r.Title[0]
}

// ToPlain renders the payload as the plain-text body fragment.
func (f *Formatter) ToPlain(payload []QueryResult) string {
	var b strings.Builder

	for _, q := range payload {
		fmt.Fprintf(&b, "%s (%s)\n", q.Name, q.QueryURL)
		for _, r := range q.Results {
			fmt.Fprintf(&b, "  %s: %s %s\n", r.Bibcode, FirstAuthorFormatted(r), firstTitle(r))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ToHTML renders the payload as an HTML fragment sized for a col-column
// layout. Layouts other than 1 and 2 columns are unsupported: ok is false
// and the caller must fall back to a default layout for that email.
func (f *Formatter) ToHTML(payload []QueryResult, col int) (html string, ok bool) {
	var b strings.Builder

	switch col {
	case SingleColumn:
		b.WriteString("<td align=\"center\" valign=\"top\" class=\"templateColumnContainer\">\n")
		b.WriteString("<table border=\"0\" cellpadding=\"10\" cellspacing=\"0\" width=\"100%\">\n")
		b.WriteString("<tr>\n")
		f.writeColumn(&b, payload, "columnContent")
		b.WriteString("</tr>\n")
		b.WriteString("</table>\n")
		b.WriteString("</td>\n")
	case TwoColumn:
		// Queries split across a left and a right column.
		mid := (len(payload) + 1) / 2
		b.WriteString("<td align=\"center\" valign=\"top\" class=\"templateColumnContainer\">\n")
		b.WriteString("<table border=\"0\" cellpadding=\"10\" cellspacing=\"0\" width=\"100%\">\n")
		b.WriteString("<tr>\n")
		f.writeColumn(&b, payload[:mid], "leftColumnContent")
		f.writeColumn(&b, payload[mid:], "rightColumnContent")
		b.WriteString("</tr>\n")
		b.WriteString("</table>\n")
		b.WriteString("</td>\n")
	default:
		return "", false
	}

	return b.String(), true
}

// writeColumn emits one <td> of queries with the given content class.
func (f *Formatter) writeColumn(b *strings.Builder, queries []QueryResult, class string) {
	fmt.Fprintf(b, "<td valign=\"top\" class=%q>\n", class)
	for _, q := range queries {
		fmt.Fprintf(b,
			"<h3><a href=%q style=\"color: #1C459B; font-style: italic;font-weight: bold;\">%s</a></h3>\n",
			q.QueryURL, q.Name)
		for _, r := range q.Results {
			fmt.Fprintf(b,
				"<a href=\"%s/abs/%s/abstract\" style=\"color: #5081E9;\">%s</a> (%s)<br>\n",
				f.AbstractBaseURL, r.Bibcode, firstTitle(r), FirstAuthorFormatted(r))
		}
	}
	b.WriteString("</td>\n")
}
