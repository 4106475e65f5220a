package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX reads word/document.xml from the OOXML archive and
// collects the character data of every <w:t> run.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return collectTextElements(rc)
	}
	return "", fmt.Errorf("docx archive has no word/document.xml")
}

// collectTextElements walks an OOXML stream and joins the contents of
// all "t" elements with spaces.
func collectTextElements(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var parts []string
	var inText bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			inText = false
		case xml.CharData:
			if inText {
				parts = append(parts, string(t))
			}
		}
	}
	return strings.Join(parts, " "), nil
}
