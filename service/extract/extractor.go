// Package extract turns uploaded document bytes into plain text so
// the indexing pipeline can tokenize them. Each supported MIME type
// is handled by a dedicated extractor; unsupported types are reported
// as such so the caller can skip indexing without failing the task.
package extract

import "strings"

// Handler extracts readable text from raw document bytes.
type Handler func(data []byte) (string, error)

// Service dispatches extraction by normalized MIME type.
type Service struct {
	handlers map[string]Handler
}

// NewService builds a Service with the full set of format handlers.
func NewService() *Service {
	s := &Service{handlers: map[string]Handler{}}

	textTypes := []string{
		"text/plain",
		"text/csv",
		"text/xml",
		"text/html",
		"text/rtf",
		"application/json",
		"application/xml",
		"application/yaml",
		"application/x-yaml",
	}
	for _, t := range textTypes {
		s.handlers[t] = extractText
	}

	s.handlers["application/pdf"] = extractPDF

	docxTypes := []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
		"application/vnd.oasis.opendocument.text",
	}
	for _, t := range docxTypes {
		s.handlers[t] = extractDOCX
	}

	xlsxTypes := []string{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"application/vnd.oasis.opendocument.spreadsheet",
	}
	for _, t := range xlsxTypes {
		s.handlers[t] = extractXLSX
	}

	pptxTypes := []string{
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.ms-powerpoint",
		"application/vnd.oasis.opendocument.presentation",
	}
	for _, t := range pptxTypes {
		s.handlers[t] = extractPPTX
	}

	imageTypes := []string{
		"image/png",
		"image/jpeg",
		"image/tiff",
		"image/bmp",
	}
	for _, t := range imageTypes {
		s.handlers[t] = extractOCR
	}

	return s
}

// NormalizeMime lowercases the content type and strips any parameters
// such as "; charset=utf-8".
func NormalizeMime(contentType string) string {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

// Supported reports whether the given normalized MIME type has an
// extraction handler.
func (s *Service) Supported(mime string) bool {
	_, ok := s.handlers[mime]
	return ok
}

// Extract returns plain text for the document, or an empty string
// with a nil error when the MIME type is not supported.
func (s *Service) Extract(data []byte, mime string) (string, error) {
	h, ok := s.handlers[mime]
	if !ok {
		return "", nil
	}
	return h(data)
}
