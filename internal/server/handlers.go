package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/imageio"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/version"
)

const (
	uploadField   = "file"
	noFileMessage = "No file uploaded or invalid file type."
)

// requestError carries the status and client-facing message of a failed
// request.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// formatsHandler lists the symbologies the reader knows and those enabled.
func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hints := s.scanner.Hints()
	enabled := hints.PossibleFormats
	if len(enabled) == 0 {
		enabled = barcode.AllFormats
	}
	s.writeJSON(w, http.StatusOK, FormatsResponse{
		Supported: formatNames(barcode.AllFormats),
		Enabled:   formatNames(enabled),
		TryHarder: hints.TryHarder,
	})
}

func formatNames(fs []barcode.Format) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// scanImageHandler decodes the first barcode in an uploaded image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.readUpload(w, r, "image")
	if err != nil {
		s.fail(w, r, "image", err)
		return
	}

	res, err := s.scanBytes(data)
	if err != nil {
		s.fail(w, r, "image", err)
		return
	}

	scanRequestsTotal.WithLabelValues("image", "success").Inc()
	s.writeJSON(w, http.StatusOK, scanResponse(res))
}

// scanPDFHandler scans the embedded images of an uploaded PDF. An optional
// "pages" field restricts the pages, e.g. "1-3,5".
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := s.readUpload(w, r, "pdf")
	if err != nil {
		s.fail(w, r, "pdf", err)
		return
	}

	doc, err := s.pdf.ProcessReader(bytes.NewReader(data), r.FormValue("pages"))
	if err != nil {
		status := http.StatusBadRequest
		msg := "Invalid PDF file: " + err.Error()
		if errors.Is(err, pdf.ErrInvalidPageRange) {
			msg = err.Error()
		}
		s.fail(w, r, "pdf", &requestError{status: status, message: msg})
		return
	}

	hits := doc.Hits()
	if hits == nil {
		hits = []pdf.Hit{}
	}
	status := "success"
	if len(hits) == 0 {
		status = "not_found"
	}
	scanRequestsTotal.WithLabelValues("pdf", status).Inc()

	s.writeJSON(w, http.StatusOK, PDFScanResponse{
		Hits:       hits,
		Images:     doc.ImageCount(),
		Processing: doc.Processing,
	})
}

// readUpload returns the bytes of the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, kind string) ([]byte, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		if isBodyTooLarge(err) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "File too large"}
		}
		return nil, &requestError{status: http.StatusBadRequest, message: noFileMessage}
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, message: noFileMessage}
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "File too large"}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &requestError{status: http.StatusInternalServerError, message: "Failed to read upload"}
	}
	if len(data) == 0 {
		return nil, &requestError{status: http.StatusBadRequest, message: noFileMessage}
	}

	uploadSizeBytes.WithLabelValues(kind).Observe(float64(len(data)))
	return data, nil
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// scanBytes decodes an image file and scans it.
func (s *Server) scanBytes(data []byte) (scanner.Result, error) {
	img, _, err := imageio.DecodeBytes(data)
	if err != nil {
		return scanner.Result{}, &requestError{
			status:  http.StatusBadRequest,
			message: "Invalid image file: " + err.Error(),
		}
	}
	res, err := s.scanner.ScanImage(img)
	if err != nil {
		return scanner.Result{}, &requestError{status: scanStatus(err), message: err.Error()}
	}
	return res, nil
}

// scanStatus maps a scan failure to an HTTP status.
func scanStatus(err error) int {
	switch scanner.KindOf(err) {
	case scanner.KindExhausted:
		return http.StatusUnprocessableEntity
	case scanner.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func scanResponse(res scanner.Result) ScanResponse {
	return ScanResponse{QRCode: res.Text, Format: res.Format.String()}
}

// fail records and writes a failed scan request.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, kind string, err error) {
	status, msg := http.StatusInternalServerError, err.Error()
	var re *requestError
	if errors.As(err, &re) {
		status, msg = re.status, re.message
	}

	label := "error"
	if status == http.StatusUnprocessableEntity {
		label = "not_found"
	}
	scanRequestsTotal.WithLabelValues(kind, label).Inc()

	s.logger.Warn("scan request failed",
		"type", kind,
		"path", r.URL.Path,
		"status", status,
		"error", msg)
	s.writeErrorResponse(w, msg, status)
}
