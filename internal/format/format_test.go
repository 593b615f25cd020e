// internal/format/format_test.go
package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() []QueryResult {
	return []QueryResult{
		{
			Name:     "Query 1",
			QueryURL: "https://path/to/query",
			Results: []RecordSummary{
				{
					Bibcode:    "2012yCat..51392620N",
					Title:      []string{"VizieR Online Data Catalog: Spectroscopy of M81 globular clusters (Nantais+, 2010)"},
					AuthorNorm: []string{"Nantais, J", "Huchra, J"},
				},
			},
		},
	}
}

func TestFirstAuthorFormatted(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{"no authors", nil, ""},
		{"single author", []string{"Nantais, J"}, "Nantais, J"},
		{"multiple authors", []string{"Nantais, J", "Huchra, J"}, "Nantais, J,+:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstAuthorFormatted(RecordSummary{AuthorNorm: tt.authors})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToPlain(t *testing.T) {
	f := NewFormatter("https://ui.adsabs.harvard.edu/")

	got := f.ToPlain(testPayload())

	want := "Query 1 (https://path/to/query)\n" +
		"  2012yCat..51392620N: Nantais, J,+: VizieR Online Data Catalog: Spectroscopy of M81 globular clusters (Nantais+, 2010)\n" +
		"\n"
	assert.Equal(t, want, got)
}

func TestToPlain_SingleAuthorNoTrailingColon(t *testing.T) {
	f := NewFormatter("https://ui.adsabs.harvard.edu/")

	payload := []QueryResult{
		{
			Name:     "Query 1",
			QueryURL: "https://path/to/query",
			Results: []RecordSummary{
				{
					Bibcode:    "2012yCat..51392620N",
					Title:      []string{"A title"},
					AuthorNorm: []string{"Nantais, J"},
				},
			},
		},
	}

	got := f.ToPlain(payload)
	assert.Contains(t, got, "  2012yCat..51392620N: Nantais, J A title\n")
}

func TestToHTML_SingleColumn(t *testing.T) {
	f := NewFormatter("https://ui.adsabs.harvard.edu/")

	html, ok := f.ToHTML(testPayload(), SingleColumn)
	require.True(t, ok)

	lines := strings.Split(html, "\n")
	require.Greater(t, len(lines), 5)

	assert.Equal(t, "<td valign=\"top\" class=\"columnContent\">", lines[3])
	assert.Equal(t,
		"<h3><a href=\"https://path/to/query\" style=\"color: #1C459B; font-style: italic;font-weight: bold;\">Query 1</a></h3>",
		lines[4])
	assert.Equal(t,
		"<a href=\"https://ui.adsabs.harvard.edu//abs/2012yCat..51392620N/abstract\" style=\"color: #5081E9;\">"+
			"VizieR Online Data Catalog: Spectroscopy of M81 globular clusters (Nantais+, 2010)</a> (Nantais, J,+:)<br>",
		lines[5])
}

func TestToHTML_TwoColumn(t *testing.T) {
	f := NewFormatter("https://ui.adsabs.harvard.edu/")

	payload := []QueryResult{
		{Name: "Query 1", QueryURL: "https://path/to/query1"},
		{Name: "Query 2", QueryURL: "https://path/to/query2"},
		{Name: "Query 3", QueryURL: "https://path/to/query3"},
	}

	html, ok := f.ToHTML(payload, TwoColumn)
	require.True(t, ok)

	lines := strings.Split(html, "\n")
	require.Greater(t, len(lines), 5)

	assert.Equal(t, "<td valign=\"top\" class=\"leftColumnContent\">", lines[3])
	assert.Equal(t,
		"<h3><a href=\"https://path/to/query1\" style=\"color: #1C459B; font-style: italic;font-weight: bold;\">Query 1</a></h3>",
		lines[4])

	// Odd query counts put the extra query in the left column.
	left := strings.Index(html, "leftColumnContent")
	right := strings.Index(html, "rightColumnContent")
	require.Greater(t, right, left)
	assert.Contains(t, html[left:right], "Query 2")
	assert.Contains(t, html[right:], "Query 3")
}

func TestToHTML_UnsupportedLayout(t *testing.T) {
	f := NewFormatter("https://ui.adsabs.harvard.edu/")

	html, ok := f.ToHTML(testPayload(), 3)
	assert.False(t, ok)
	assert.Empty(t, html)
}

func TestRenderEmail(t *testing.T) {
	env := RenderEmail("plain body\n", "<td>html body</td>", "Daily email", "June 13, 2023", "user@example.com")

	assert.Equal(t, "myADS Notification", env.Subject)

	assert.True(t, strings.HasPrefix(env.Plain,
		"SAO/NASA ADS: myADS Personal Notification Service Results\n\nplain body\n"))

	assert.Contains(t, env.HTML, "<td>html body</td>")
	assert.Contains(t, env.HTML, "<h3 style=\"margin: 0 0 10px 0;\"> Daily email </h3>")
	assert.Contains(t, env.HTML, "<h3 style=\"margin: 0 0 10px 0;\"> June 13, 2023 </h3>")
	assert.Contains(t, env.HTML, "This message was sent to user@example.com.")
	assert.NotContains(t, env.HTML, "{{")
	assert.NotContains(t, env.Plain, "{{")
}
