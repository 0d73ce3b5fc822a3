package pdf

import (
	"io"
	"log/slog"

	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// Processor scans the images embedded in PDF documents.
type Processor struct {
	scanner *scanner.Scanner
	logger  *slog.Logger
	creds   *Credentials
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithCredentials unlocks encrypted documents.
func WithCredentials(c *Credentials) ProcessorOption {
	return func(p *Processor) { p.creds = c }
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor creates a processor around s.
func NewProcessor(s *scanner.Scanner, opts ...ProcessorOption) *Processor {
	p := &Processor{scanner: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFile scans every embedded image of the selected pages. Image
// failures are recorded on the result; only extraction errors are returned.
func (p *Processor) ProcessFile(filename, pageRange string) (*DocumentResult, error) {
	timer := common.NewNamedTimer(filename)
	imgs, err := ExtractFile(filename, pageRange, p.creds)
	if err != nil {
		return nil, err
	}
	doc := p.finish(timer, imgs)
	doc.Filename = filename
	return doc, nil
}

// ProcessReader is ProcessFile over an open document.
func (p *Processor) ProcessReader(rs io.ReadSeeker, pageRange string) (*DocumentResult, error) {
	timer := common.NewNamedTimer("pdf")
	imgs, err := Extract(rs, pageRange, p.creds)
	if err != nil {
		return nil, err
	}
	return p.finish(timer, imgs), nil
}

// ProcessFiles processes several documents in order. A failing document
// yields a nil entry and its error at the same index.
func (p *Processor) ProcessFiles(filenames []string, pageRange string) ([]*DocumentResult, []error) {
	docs := make([]*DocumentResult, len(filenames))
	errs := make([]error, len(filenames))
	for i, name := range filenames {
		docs[i], errs[i] = p.ProcessFile(name, pageRange)
	}
	return docs, errs
}

// finish scans the extracted images and fills in the timing of timer's
// extract and scan phases.
func (p *Processor) finish(timer *common.Timer, imgs []PageImage) *DocumentResult {
	extraction := timer.Lap("extract")
	doc := p.scanImages(imgs)
	scan := timer.Lap("scan")
	total := timer.Stop()

	doc.Processing = ProcessingInfo{
		ExtractionTimeMs: extraction.Milliseconds(),
		ScanTimeMs:       scan.Milliseconds(),
		TotalTimeMs:      total.Milliseconds(),
	}
	p.logger.Debug("PDF processed", "images", len(imgs), "timing", timer.String())
	return doc
}

func (p *Processor) scanImages(imgs []PageImage) *DocumentResult {
	doc := &DocumentResult{}
	for _, pi := range imgs {
		if n := len(doc.Pages); n == 0 || doc.Pages[n-1].PageNumber != pi.Page {
			doc.Pages = append(doc.Pages, PageResult{PageNumber: pi.Page})
		}
		page := &doc.Pages[len(doc.Pages)-1]
		page.Images = append(page.Images, p.scanImage(pi))
	}
	return doc
}

func (p *Processor) scanImage(pi PageImage) ImageResult {
	ir := ImageResult{ImageIndex: pi.Index, Name: pi.Name}
	if pi.Err != nil {
		ir.Error = pi.Err.Error()
		ir.ErrorKind = "decode_failed"
		p.logger.Debug("skipping undecodable PDF image", "page", pi.Page, "image", pi.Name, "type", pi.FileType, "error", pi.Err)
		return ir
	}

	b := pi.Image.Bounds()
	ir.Width, ir.Height = b.Dx(), b.Dy()

	res, err := p.scanner.ScanImage(pi.Image)
	if err != nil {
		ir.Error = err.Error()
		ir.ErrorKind = string(scanner.KindOf(err))
		return ir
	}
	ir.Result = &res
	return ir
}
