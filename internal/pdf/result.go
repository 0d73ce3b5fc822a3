package pdf

import (
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// ImageResult is the scan outcome for one image embedded in a page.
type ImageResult struct {
	ImageIndex int             `json:"image_index"`
	Name       string          `json:"name,omitempty"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Result     *scanner.Result `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
}

// Decoded reports whether the image produced a barcode.
func (r ImageResult) Decoded() bool { return r.Result != nil }

// PageResult groups the images of one page.
type PageResult struct {
	PageNumber int           `json:"page_number"`
	Images     []ImageResult `json:"images"`
}

// DocumentResult is the scan outcome for a whole PDF.
type DocumentResult struct {
	Filename   string         `json:"filename,omitempty"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	ScanTimeMs       int64 `json:"scan_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// Hit is one decoded barcode with its location in the document.
type Hit struct {
	Page       int            `json:"page"`
	ImageIndex int            `json:"image_index"`
	Result     scanner.Result `json:"result"`
}

// Hits flattens the decoded results in page order.
func (d *DocumentResult) Hits() []Hit {
	var hits []Hit
	for _, p := range d.Pages {
		for _, img := range p.Images {
			if img.Result != nil {
				hits = append(hits, Hit{Page: p.PageNumber, ImageIndex: img.ImageIndex, Result: *img.Result})
			}
		}
	}
	return hits
}

// ImageCount returns the number of images inspected.
func (d *DocumentResult) ImageCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Images)
	}
	return n
}
