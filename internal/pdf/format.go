package pdf

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// FormatResults renders documents as text, json or csv.
func FormatResults(docs []*DocumentResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(docs)
	case "csv":
		return formatCSV(docs)
	case "", "text":
		return formatText(docs), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatJSON(docs []*DocumentResult) (string, error) {
	out := struct {
		Documents []*DocumentResult `json:"documents"`
	}{Documents: docs}
	if out.Documents == nil {
		out.Documents = []*DocumentResult{}
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV writes one row per inspected image.
func formatCSV(docs []*DocumentResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	rows := [][]string{{"file", "page", "image", "text", "format", "strategy", "error"}}
	for _, doc := range docs {
		for _, p := range doc.Pages {
			for _, img := range p.Images {
				row := []string{doc.Filename, strconv.Itoa(p.PageNumber), strconv.Itoa(img.ImageIndex), "", "", "", img.Error}
				if img.Result != nil {
					row[3] = img.Result.Text
					row[4] = img.Result.Format.String()
					row[5] = img.Result.Strategy.String()
				}
				rows = append(rows, row)
			}
		}
	}

	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(docs []*DocumentResult) string {
	var output strings.Builder
	for i, doc := range docs {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", doc.Filename)
		hits := doc.Hits()
		if len(hits) == 0 {
			fmt.Fprintf(&output, "no barcode found in %d image(s)\n", doc.ImageCount())
			continue
		}
		for _, h := range hits {
			fmt.Fprintf(&output, "page %d, image %d: %s [%s]\n", h.Page, h.ImageIndex, h.Result.Text, h.Result.Format)
		}
	}
	return output.String()
}

// ScanFile scans filename with s using default processor options.
func ScanFile(s *scanner.Scanner, filename, pageRange string) (*DocumentResult, error) {
	return NewProcessor(s).ProcessFile(filename, pageRange)
}
