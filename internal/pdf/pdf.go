// Package pdf pulls embedded raster images out of PDF documents and scans
// each of them for a barcode.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/barscan/internal/imageio"
)

// ErrInvalidPageRange is returned for malformed page selections.
var ErrInvalidPageRange = errors.New("invalid page range")

// Credentials unlock encrypted documents.
type Credentials struct {
	UserPassword  string `json:"-"`
	OwnerPassword string `json:"-"`
}

// PageImage is one embedded image. Err is set when the image was found but
// could not be decoded, e.g. JPEG 2000 streams.
type PageImage struct {
	Page     int
	Index    int
	Name     string
	FileType string
	Image    image.Image
	Err      error
}

// ExtractImages extracts all images from a PDF file grouped by page number.
// Images that fail to decode are skipped.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	imgs, err := ExtractFile(filename, pageRange, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]image.Image)
	for _, pi := range imgs {
		if pi.Err == nil {
			out[pi.Page] = append(out[pi.Page], pi.Image)
		}
	}
	return out, nil
}

// ExtractFile opens filename and calls Extract.
func ExtractFile(filename, pageRange string, creds *Credentials) ([]PageImage, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: reading a user-supplied PDF path is the point
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Extract(f, pageRange, creds)
}

// Extract returns the embedded images of the selected pages ordered by page,
// then by their order on the page. An empty pageRange selects every page.
// With credentials the document is decrypted first and images are extracted
// from the decrypted copy.
func Extract(rs io.ReadSeeker, pageRange string, creds *Credentials) ([]PageImage, error) {
	pages, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPageRange, pageRange, err)
	}

	src, decErr := decrypt(rs, creds)
	if src == nil {
		return nil, decErr
	}

	var selected []string
	if len(pages) > 0 {
		selected = make([]string, len(pages))
		for i, p := range pages {
			selected[i] = strconv.Itoa(p)
		}
	}

	var out []PageImage
	perPage := make(map[int]int)
	digest := func(img model.Image, _ bool, _ int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("reading image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		pi := PageImage{
			Page:     img.PageNr,
			Index:    perPage[img.PageNr],
			Name:     img.Name,
			FileType: img.FileType,
		}
		perPage[img.PageNr]++
		pi.Image, _, pi.Err = imageio.DecodeBytes(data)
		out = append(out, pi)
		return nil
	}

	if err := api.ExtractImages(src, selected, digest, model.NewDefaultConfiguration()); err != nil {
		if decErr != nil {
			return nil, fmt.Errorf("failed to decrypt PDF: %w", decErr)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// ExtractBytes is Extract over an in-memory document.
func ExtractBytes(data []byte, pageRange string, creds *Credentials) ([]PageImage, error) {
	return Extract(bytes.NewReader(data), pageRange, creds)
}

// decrypt returns an in-memory decrypted copy of rs. Without credentials rs
// is returned unchanged. When decryption fails rs is rewound and returned
// along with the decryption error, so that an unencrypted document still
// extracts.
func decrypt(rs io.ReadSeeker, creds *Credentials) (io.ReadSeeker, error) {
	if creds == nil || (creds.UserPassword == "" && creds.OwnerPassword == "") {
		return rs, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = creds.UserPassword
	conf.OwnerPW = creds.OwnerPassword

	var buf bytes.Buffer
	decErr := api.Decrypt(rs, &buf, conf)
	if decErr == nil {
		return bytes.NewReader(buf.Bytes()), nil
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind PDF: %w", err)
	}
	return rs, decErr
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil // Empty means all pages
	}

	var pages []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for _, p := range tokenPages {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}

	sort.Ints(pages)
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if before, after, found := strings.Cut(part, "-"); found {
		start, err := parsePage(before)
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", before)
		}
		end, err := parsePage(after)
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", after)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := parsePage(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("pages start at 1")
	}
	return n, nil
}
