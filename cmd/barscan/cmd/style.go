package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// Palette
const (
	colorDim     = lipgloss.Color("#7A8291")
	colorAccent  = lipgloss.Color("#88C0D0")
	colorSuccess = lipgloss.Color("#A3BE8C")
	colorWarn    = lipgloss.Color("#EBCB8B")
	colorError   = lipgloss.Color("#BF616A")
)

// styles renders the text output format. Each style is bound to the
// renderer of the destination writer so colour is dropped when w is not a
// terminal.
type styles struct {
	file    lipgloss.Style
	text    lipgloss.Style
	format  lipgloss.Style
	miss    lipgloss.Style
	failure lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		file:    r.NewStyle().Bold(true).Foreground(colorAccent),
		text:    r.NewStyle().Foreground(colorSuccess),
		format:  r.NewStyle().Foreground(colorDim),
		miss:    r.NewStyle().Foreground(colorWarn),
		failure: r.NewStyle().Foreground(colorError),
	}
}

func (st styles) result(b *strings.Builder, res *scanner.Result) {
	fmt.Fprintf(b, "%s %s\n", st.text.Render(res.Text), st.format.Render("["+res.Format.String()+"]"))
}

func (st styles) err(b *strings.Builder, err error) {
	style := st.failure
	if scanner.KindOf(err) == scanner.KindExhausted {
		style = st.miss
	}
	b.WriteString(style.Render("error: "+err.Error()) + "\n")
}

// renderItems is the styled counterpart of batch text output.
func (st styles) renderItems(items []batch.Item) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(st.file.Render("# "+it.File) + "\n")
		switch {
		case it.Result != nil:
			st.result(&b, it.Result)
		case it.Err != nil:
			st.err(&b, it.Err)
		}
	}
	return b.String()
}

// renderDocuments is the styled counterpart of PDF text output.
func (st styles) renderDocuments(docs []*pdf.DocumentResult) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(st.file.Render("# "+doc.Filename) + "\n")
		hits := doc.Hits()
		if len(hits) == 0 {
			b.WriteString(st.miss.Render(fmt.Sprintf("no barcode found in %d image(s)", doc.ImageCount())) + "\n")
			continue
		}
		for _, h := range hits {
			b.WriteString(st.format.Render(fmt.Sprintf("page %d, image %d: ", h.Page, h.ImageIndex)))
			res := h.Result
			st.result(&b, &res)
		}
	}
	return b.String()
}
