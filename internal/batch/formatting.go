package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// jsonItem is the serialised form of an Item.
type jsonItem struct {
	File       string          `json:"file"`
	Result     *scanner.Result `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(items []Item, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(items)
	case "csv":
		return formatCSV(items)
	case "", "text":
		return formatText(items), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatJSON(items []Item) (string, error) {
	out := struct {
		Images []jsonItem `json:"images"`
	}{Images: make([]jsonItem, len(items))}

	for i, it := range items {
		ji := jsonItem{File: it.File, Result: it.Result, DurationMs: it.Duration.Milliseconds()}
		if it.Err != nil {
			ji.Error = it.Err.Error()
			ji.ErrorKind = string(scanner.KindOf(it.Err))
		}
		out.Images[i] = ji
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

func formatCSV(items []Item) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	rows := [][]string{{"file", "text", "format", "strategy", "attempts", "error"}}
	for _, it := range items {
		if it.Result != nil {
			rows = append(rows, []string{
				it.File,
				it.Result.Text,
				it.Result.Format.String(),
				it.Result.Strategy.String(),
				strconv.Itoa(it.Result.Attempts),
				"",
			})
			continue
		}
		errText := ""
		if it.Err != nil {
			errText = it.Err.Error()
		}
		rows = append(rows, []string{it.File, "", "", "", "", errText})
	}

	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(items []Item) string {
	var output strings.Builder
	for i, it := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", it.File)
		if it.Result != nil {
			fmt.Fprintf(&output, "%s [%s]\n", it.Result.Text, it.Result.Format)
		} else if it.Err != nil {
			fmt.Fprintf(&output, "error: %v\n", it.Err)
		}
	}
	return output.String()
}
